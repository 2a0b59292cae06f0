package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/istmo-digital/docintel/internal/classify"
	"github.com/istmo-digital/docintel/internal/ocr"
	"github.com/istmo-digital/docintel/internal/patterns"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify a document without persisting anything",
	Long: `Runs filename classification, then refines it with the document's
text layer when one can be extracted locally. No backend calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	path := args[0]
	library := patterns.NewLibrary()
	classifier := classify.NewClassifier(library, nil)

	result := classifier.ByFilename(filepath.Base(path))
	fmt.Printf("filename: %s (%.2f)\n", result.TypeID, result.Confidence)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	local := ocr.NewLocalExtractor(ocr.LocalConfig{Pdftotext: cfg.OCR.PdftotextPath}, nil)
	text := local.ExtractText(cmd.Context(), data, filepath.Base(path))
	if ocr.IsFailureSignal(text) {
		fmt.Printf("text:     unavailable (%s)\n", text)
		return nil
	}

	refined := classifier.Classify(text)
	fmt.Printf("text:     %s (%.2f)\n", refined.TypeID, refined.Confidence)

	type scored struct {
		typeID string
		score  int
	}
	var ranked []scored
	for id, score := range refined.Scores {
		if score > 0 {
			ranked = append(ranked, scored{string(id), score})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	for _, s := range ranked {
		fmt.Printf("  %-20s %d\n", s.typeID, s.score)
	}
	return nil
}
