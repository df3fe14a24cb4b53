package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/detector"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/export"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

func detectCmd() *cobra.Command {
	var out string
	var modelPath string
	var libraryPath string
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "detect <image-dir>",
		Short: "Run the local ONNX layout model over a directory of page scans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageDir := args[0]

			mgr, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg := mgr.GetConfig()
			if modelPath == "" {
				modelPath = cfg.DetectorModelPath
			}

			det, err := detector.New(detector.Config{
				ModelPath:   modelPath,
				LibraryPath: libraryPath,
			})
			if err != nil {
				return err
			}
			defer det.Close()

			paths, err := pageImagePaths(imageDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return types.NewAppError(types.ErrInvalidInput, "no page images found in "+imageDir, nil)
			}

			inputs := make([]pipeline.PageInput, 0, len(paths))
			nextID := 1
			for i, path := range paths {
				img, err := loadImage(path)
				if err != nil {
					return err
				}
				elems, err := det.DetectPage(img, i, nextID)
				if err != nil {
					return err
				}
				nextID += len(elems)
				bounds := img.Bounds()
				inputs = append(inputs, pipeline.PageInput{
					Geometry: layout.PageGeometry{
						PageIndex: i,
						Width:     float64(bounds.Dx()),
						Height:    float64(bounds.Dy()),
					},
					Elements: elems,
				})
			}

			opts, err := buildOptions(cfg, flags)
			if err != nil {
				return err
			}
			result, err := pipeline.Process(cmd.Context(), inputs, opts)
			if err != nil {
				return err
			}
			printWarnings(cmd, result)

			if out == "" {
				out = imageDir
			}
			sidecarPath := filepath.Join(out, filepath.Base(imageDir)+".layout.json")
			if err := export.WriteSidecar(sidecarPath, imageDir, result, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pages detected -> %s\n", len(result.Pages), sidecarPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: the image directory)")
	cmd.Flags().StringVar(&modelPath, "model", "", "ONNX layout model path (default: from config)")
	cmd.Flags().StringVar(&libraryPath, "onnx-lib", "", "onnxruntime shared library path")
	flags.register(cmd)
	return cmd
}

// pageImagePaths lists the page scans in dir in name order, which is
// taken as page order.
func pageImagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read image directory", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to open page image", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to decode page image "+path, err)
	}
	return img, nil
}
