package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmadzakiakmal/shiptrack/barcode"
	"github.com/ahmadzakiakmal/shiptrack/export"
	"github.com/ahmadzakiakmal/shiptrack/render"
)

func newBarcodeCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "barcode TEXT",
		Short: "Encode text as a CODE128 barcode and write barcode.png / barcode.pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sym, err := barcode.Encode(args[0])
			if err != nil {
				return err
			}
			img, err := render.Render(sym, cfg.Render)
			if err != nil {
				return err
			}

			pipeline := export.NewPipeline()
			var artifacts []*export.Artifact
			if strings.EqualFold(kindFlag, "all") {
				pngArtifact, pdfArtifact, err := pipeline.ExportAll(img)
				if err != nil {
					return err
				}
				artifacts = append(artifacts, pngArtifact, pdfArtifact)
			} else {
				kind, err := export.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				artifact, err := pipeline.Export(img, kind)
				if err != nil {
					return err
				}
				artifacts = append(artifacts, artifact)
			}

			symbolTable := renderTable("Barcode",
				[]string{"Symbology", "Text", "Checksum", "Codewords", "Modules", "Raster"},
				[][]string{{
					sym.Symbology,
					sym.Text,
					strconv.Itoa(sym.Checksum),
					strconv.Itoa(len(sym.Codewords)),
					strconv.Itoa(sym.Modules()),
					fmt.Sprintf("%dx%d px", img.Bounds().Dx(), img.Bounds().Dy()),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			)

			rows := make([][]string, 0, len(artifacts))
			for _, artifact := range artifacts {
				path, err := writeArtifact(outDir, artifact)
				if err != nil {
					return err
				}
				rows = append(rows, []string{artifact.Kind.String(), artifact.MediaType, strconv.Itoa(len(artifact.Data)), path})
			}
			artifactTable := renderTable("Artifacts",
				[]string{"Kind", "Media Type", "Bytes", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			)

			fmt.Fprintln(cmd.OutOrStdout(), symbolTable)
			fmt.Fprintln(cmd.OutOrStdout(), artifactTable)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write artifacts into")
	cmd.Flags().StringVar(&kindFlag, "kind", "all", "Artifact kind: png, pdf or all")
	return cmd
}
