package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

var (
	profOutputPath string
	profFormat     string
	profDelimiter  string
	profDecimal    string
	profThousands  string
	profSampleRows int
	profSheetName  string
	profSheetIndex int
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile a dataset (XLSX or CSV) and print a Markdown summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := dataset.LoadOptions{SheetName: profSheetName, SheetIndex: profSheetIndex}
		if profDelimiter != "" {
			switch profDelimiter {
			case ",":
				opt.Delimiter = ','
			case "\t", "tab":
				opt.Delimiter = '\t'
			case ";":
				opt.Delimiter = ';'
			default:
				return fmt.Errorf("unsupported --delimiter: %s", profDelimiter)
			}
		}
		// Locale separators
		switch strings.ToLower(strings.TrimSpace(profDecimal)) {
		case ",", "comma":
			opt.Parse.DecimalSeparator = ','
		case ".", "dot":
			opt.Parse.DecimalSeparator = '.'
		case "":
		default:
			return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", profDecimal)
		}
		switch strings.ToLower(strings.TrimSpace(profThousands)) {
		case ",":
			opt.Parse.ThousandsSeparator = ','
		case ".":
			opt.Parse.ThousandsSeparator = '.'
		case "space", " ":
			opt.Parse.ThousandsSeparator = ' '
		case "":
		default:
			return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", profThousands)
		}

		ds, err := dataset.Load(path, profFormat, opt)
		if err != nil {
			return err
		}
		md := dataset.NewProfile(ds, profSampleRows).Markdown()

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().StringVar(&profFormat, "format", dataset.FormatStructuredCSV, "input format: "+strings.Join(dataset.SupportedFormats(), " | "))
	profileCmd.Flags().StringVar(&profDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	profileCmd.Flags().StringVar(&profDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	profileCmd.Flags().StringVar(&profThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().StringVar(&profSheetName, "sheet-name", "", "XLSX: sheet name to read")
	profileCmd.Flags().IntVar(&profSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
