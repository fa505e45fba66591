package main

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"keystone-mrm/arbiter/pkg/cli"
	"keystone-mrm/arbiter/pkg/usecase"
)

var fieldsOutput string

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the use-case fields rulesets can reference",
	Long: `List every record field a rule or model criterion condition may name,
with its value type. Derived fields are computed from attachments and cannot
be supplied directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(fieldsOutput)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), fieldTable(usecase.Fields()))
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().StringVarP(&fieldsOutput, "output", "o", "text", "output format: text, json, csv")
}

type fieldRow struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Derived     bool   `json:"derived"`
	Description string `json:"description"`
}

type fieldTable []*usecase.FieldInfo

func (f fieldTable) Table() cli.Table {
	t := cli.Table{Headers: []string{"NAME", "TYPE", "DERIVED", "DESCRIPTION"}}
	for _, info := range f {
		t.Rows = append(t.Rows, []string{info.Name, string(info.Type), strconv.FormatBool(info.Derived), info.Description})
	}
	return t
}

func (f fieldTable) MarshalJSON() ([]byte, error) {
	rows := make([]fieldRow, 0, len(f))
	for _, info := range f {
		rows = append(rows, fieldRow{
			Name:        info.Name,
			Type:        string(info.Type),
			Derived:     info.Derived,
			Description: info.Description,
		})
	}
	return json.Marshal(rows)
}
