package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/export"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/metrics"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/translate"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

func translateCmd() *cobra.Command {
	var out string
	var targetLang string
	var docx bool
	var overlay bool
	var bilingual bool
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "translate <pdf>",
		Short: "Analyze a PDF, translate its text segments and export the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]
			started := time.Now()

			mgr, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg := mgr.GetConfig()
			if targetLang == "" {
				targetLang = cfg.TargetLanguage
			}

			status := newStatusReporter(cmd.ErrOrStderr())
			result, err := analyzeDocument(cmd.Context(), mgr, pdfPath, flags, status)
			if err != nil {
				status.Fail(err)
				return err
			}
			printWarnings(cmd, result)

			base := outputBase(pdfPath, out)
			translator, err := translate.New(cmd.Context(), translate.Config{
				APIKey:         mgr.GetAPIKey(),
				BaseURL:        mgr.GetBaseURL(),
				Model:          mgr.GetModel(),
				TargetLanguage: targetLang,
				CachePath:      base + ".translations.json",
			})
			if err != nil {
				return err
			}

			status.Report(types.Status{Phase: types.PhaseTranslating, Progress: 40})
			translations, err := translator.TranslateSegments(cmd.Context(), allSegments(result))
			if err != nil {
				status.Fail(err)
				return err
			}

			status.Report(types.Status{Phase: types.PhaseExporting, Progress: 80})
			sidecarPath := base + ".layout.json"
			if err := export.WriteSidecar(sidecarPath, pdfPath, result, translations); err != nil {
				status.Fail(err)
				return err
			}
			if docx {
				docxPath := base + ".docx"
				if err := export.WriteDocx(docxPath, result, translations, export.DocxOptions{Bilingual: bilingual}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", docxPath)
			}
			if overlay {
				overlayPath := base + ".translated.pdf"
				if err := export.OverlayTranslations(pdfPath, overlayPath, result, translations, export.OverlayOptions{}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", overlayPath)
			}

			rec := metrics.FromResult(filepath.Base(pdfPath), result, len(translations), time.Since(started))
			if err := metrics.Append(filepath.Dir(sidecarPath), rec); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			status.Report(types.Status{Phase: types.PhaseComplete, Progress: 100})
			fmt.Fprintf(cmd.OutOrStdout(), "%d segments translated -> %s\n",
				len(translations), sidecarPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: next to the input)")
	cmd.Flags().StringVar(&targetLang, "target", "", "target language code (default: from config)")
	cmd.Flags().BoolVar(&docx, "docx", true, "write a DOCX rendition")
	cmd.Flags().BoolVar(&overlay, "overlay", false, "write a copy of the PDF with translations stamped over the text")
	cmd.Flags().BoolVar(&bilingual, "bilingual", false, "keep the original text above each translation in the DOCX")
	flags.register(cmd)
	return cmd
}
