package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/collections"
	"github.com/protodb/protodb/pkg/query"
	"github.com/protodb/protodb/pkg/storage"
	"github.com/spf13/cobra"
)

// queryTermLimit bounds the optimizer's DNF expansion (query.Build's
// termLimit argument), matching pkg/query's own fallback-to-tree-execution
// threshold rather than inventing a separate CLI-only constant.
const queryTermLimit = query.DefaultTermLimit

var queryCmd = &cobra.Command{
	Use:   "query <path> <name>",
	Short: "Scan a named List root, optionally filtered and projected",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, name := args[0], args[1]
		whereJSON, _ := cmd.Flags().GetString("where")
		selectCSV, _ := cmd.Flags().GetString("select")
		limit, _ := cmd.Flags().GetInt("limit")

		space, err := storage.Open(path, false, walOptionsFromEnv())
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer space.Close()

		txn := space.Begin()
		defer txn.Close()

		root, found, err := txn.Get(name)
		if err != nil {
			return fmt.Errorf("get %s: %w", name, err)
		}
		if !found {
			return fmt.Errorf("no such root: %s", name)
		}

		list, ok := root.(*collections.List)
		if !ok {
			fmt.Printf("%s = %s\n", name, formatAtom(root))
			return nil
		}

		from := query.NewFromPlan(name, list, nil, txn.Loader())
		var node query.PlanNode = from
		if whereJSON != "" {
			var tokens interface{}
			if err := json.Unmarshal([]byte(whereJSON), &tokens); err != nil {
				return fmt.Errorf("--where: invalid JSON: %w", err)
			}
			expr, err := query.CompileTokens(tokens)
			if err != nil {
				return fmt.Errorf("--where: %w", err)
			}
			node = query.Build(from, expr, queryTermLimit)
		}

		var fields []string
		if selectCSV != "" {
			fields = strings.Split(selectCSV, ",")
		}

		iter, err := node.Execute()
		if err != nil {
			return fmt.Errorf("execute: %w", err)
		}

		printed := 0
		for {
			if limit > 0 && printed >= limit {
				break
			}
			record, ok, err := iter.Next()
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if !ok {
				break
			}
			fmt.Println(formatRecord(record, fields))
			printed++
		}
		fmt.Printf("-- %d record%s\n", printed, plural(printed))
		return nil
	},
}

func init() {
	queryCmd.Flags().String("where", "", `filter as JSON token list, e.g. ["age", ">", 18]`)
	queryCmd.Flags().String("select", "", "comma-separated attribute names to print (default: all)")
	queryCmd.Flags().Int("limit", 0, "stop after this many records (0 = unlimited)")
}

func formatRecord(r query.Record, fields []string) string {
	names := fields
	if len(names) == 0 {
		names = sortedAttributeNames(r.Row)
	}

	parts := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		value, found, err := r.Field(n)
		switch {
		case err != nil:
			parts = append(parts, fmt.Sprintf("%s=<error: %v>", n, err))
		case !found:
			parts = append(parts, fmt.Sprintf("%s=<missing>", n))
		default:
			parts = append(parts, fmt.Sprintf("%s=%s", n, formatAtom(value)))
		}
	}
	return strings.Join(parts, " ")
}

func sortedAttributeNames(row *atom.UserRecord) []string {
	names := make([]string, 0, len(row.Attributes))
	for k := range row.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func formatAtom(a atom.Atom) string {
	if lit, ok := a.(*atom.Literal); ok {
		return lit.Value
	}
	return fmt.Sprintf("<%s>", a.AtomKind())
}
