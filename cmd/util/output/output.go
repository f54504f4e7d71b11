package output

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type OutputFormat string

const (
	TableFormat OutputFormat = "table"
	CSVFormat   OutputFormat = "csv"
	JSONFormat  OutputFormat = "json"
)

var AllFormats = []OutputFormat{TableFormat, CSVFormat, JSONFormat}

func (f *OutputFormat) String() string {
	return string(*f)
}

func (f *OutputFormat) Set(v string) error {
	for _, format := range AllFormats {
		if string(format) == v {
			*f = format
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q, expected one of %v", v, AllFormats)
}

func (f *OutputFormat) Type() string {
	return "format"
}

var noStyle = table.Style{
	Name:   "StyleDefault",
	Box:    table.StyleBoxDefault,
	Color:  table.ColorOptionsDefault,
	Format: table.FormatOptionsDefault,
	HTML:   table.DefaultHTMLOptions,
	Options: table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateFooter:  false,
		SeparateHeader:  false,
		SeparateRows:    false,
	},
	Title: table.TitleOptionsDefault,
}

type OutputOptions struct {
	Format     OutputFormat
	Pretty     bool // Pretty print JSON output
	HideHeader bool
	NoStyle    bool // Remove all styling from table output.
	Wide       bool // Print full values in the table results
}

func OutputFormatFlags(opts *OutputOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("output format", pflag.ContinueOnError)
	fs.Var(&opts.Format, "output", fmt.Sprintf("The output format for the command (one of %v)", AllFormats))
	fs.BoolVar(&opts.Pretty, "pretty", opts.Pretty, "Pretty print the output. Only applies to json output.")
	fs.BoolVar(&opts.HideHeader, "hide-header", opts.HideHeader, "do not print the column headers.")
	fs.BoolVar(&opts.NoStyle, "no-style", opts.NoStyle, "remove all styling from table output.")
	fs.BoolVar(&opts.Wide, "wide", opts.Wide, "Print full values in the table results")
	return fs
}

type TableColumn[T any] struct {
	table.ColumnConfig
	Value func(T) string
}

func Output[T any](cmd *cobra.Command, columns []TableColumn[T], options OutputOptions, items []T) error {
	switch options.Format {
	case TableFormat, CSVFormat, "":
		outputTable(cmd, columns, options, items)
		return nil
	case JSONFormat:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		if options.Pretty {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(items)
	default:
		return fmt.Errorf("invalid format %q", options.Format)
	}
}

func outputTable[T any](cmd *cobra.Command, columns []TableColumn[T], options OutputOptions, items []T) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())

	configs := lo.Map(columns, func(c TableColumn[T], i int) table.ColumnConfig {
		config := c.ColumnConfig
		config.Number = i + 1
		if options.Wide {
			config.WidthMax = 0
			config.WidthMaxEnforcer = nil
		}
		return config
	})
	tw.SetColumnConfigs(configs)

	if !options.HideHeader {
		headers := lo.Map(columns, func(c TableColumn[T], _ int) any { return c.Name })
		tw.AppendHeader(headers)
	}

	tw.SetStyle(table.StyleColoredGreenWhiteOnBlack)
	if options.NoStyle {
		tw.SetStyle(noStyle)
	}

	for _, item := range items {
		tw.AppendRow(lo.Map(columns, func(c TableColumn[T], _ int) any {
			return c.Value(item)
		}))
	}

	if options.Format == CSVFormat {
		tw.RenderCSV()
		return
	}
	tw.Render()
}

func RedStr(s string) string {
	return text.FgRed.Sprint(s)
}
