package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/ocr"
)

var questionsCmd = &cobra.Command{
	Use:   "questions <type>",
	Short: "Show the targeted question set for a document type",
	Long: `Prints the backend query catalog that would be submitted for the
given document type. Use --subtype for contract product families
(prestamo, cuenta_corriente, tarjeta_credito, deposito).`,
	Args: cobra.ExactArgs(1),
	RunE: runQuestions,
}

func init() {
	questionsCmd.Flags().String("subtype", "", "contract subtype")
	rootCmd.AddCommand(questionsCmd)
}

func runQuestions(cmd *cobra.Command, args []string) error {
	typeID, ok := constants.ParseTypeID(args[0])
	if !ok {
		return fmt.Errorf("unknown document type %q (one of: %v)", args[0], constants.AllTypeIDs())
	}
	subtype, _ := cmd.Flags().GetString("subtype")

	questions := ocr.QuestionsFor(typeID, constants.ContractSubtype(subtype))
	questions = ocr.ValidateQuestions(questions, nil)

	fmt.Printf("%s: %d questions\n", typeID, len(questions))
	for _, q := range questions {
		fmt.Printf("  %-24s %s\n", q.Alias, q.Text)
	}
	return nil
}
