package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/pkg/larder"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// withRepository opens the DB, resolves the repository for table and runs fn.
func (a *app) withRepository(ctx context.Context, table string, fn func(*larder.Repository) error) error {
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := db.RepositoryForTable(table)
	if err != nil {
		return fmt.Errorf("unknown table %q (registered: %v): %w", table, db.Registry().Tables(), err)
	}
	return fn(r)
}

func newGetCmd(a *app) *cobra.Command {
	var includes []string
	cmd := &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Get an entity by identifier",
		Long: `Get loads one entity and the relations named by --include.

Example:
  larder get people 1
  larder get people 1 --include address
  larder get addresses a1 --include person.address`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withRepository(ctx, args[0], func(r *larder.Repository) error {
				v, err := r.Queryable().IncludePaths(includes...).GetByID(ctx, larder.ParseValue(args[1]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
	cmd.Flags().StringSliceVar(&includes, "include", nil, "relations to load, dotted for nesting")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		includes []string
		fields   []string
		count    bool
	)
	cmd := &cobra.Command{
		Use:   "list <table> [field=value...]",
		Short: "List entities with optional filters",
		Long: `List returns the entities of a table that match every filter.

Filters are field=value or field!=value. Values are read as JSON when they
parse, so personId=1 matches the number 1 and name=Ada matches the string.

Example:
  larder list addresses
  larder list addresses personId=1 --include person
  larder list addresses personId=1 --select id,street
  larder list people name!=Ada --count`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withRepository(ctx, args[0], func(r *larder.Repository) error {
				q := r.Queryable().IncludePaths(includes...).Filter(args[1:]...)
				if count {
					n, err := q.Count(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
					return err
				}
				views, err := q.Select(ctx, fields...)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), views)
			})
		},
	}
	cmd.Flags().StringSliceVar(&includes, "include", nil, "relations to load, dotted for nesting")
	cmd.Flags().StringSliceVar(&fields, "select", nil, "scalar fields to load (default: all)")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matches only")
	return cmd
}

// writeCmd builds create, set and update, which differ only in the
// repository method they call.
func writeCmd(a *app, use, short string, write func(*larder.Repository, context.Context, types.Record) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <table> <json|->",
		Short: short,
		Long: short + `. The entity is a JSON object; "-" reads it from standard input.
Nested objects and arrays under relation names are written too.

Example:
  larder ` + use + ` people '{"id":1,"name":"Ada","address":[{"id":"a1","street":"Main"}]}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return sysError{fmt.Errorf("read input: %w", err)}
			}
			rec := types.Record{}
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
			}
			ctx := cmd.Context()
			return a.withRepository(ctx, args[0], func(r *larder.Repository) error {
				if err := write(r, ctx, rec); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return writeCmd(a, "create", "Create a new entity", (*larder.Repository).Create)
}

func newSetCmd(a *app) *cobra.Command {
	return writeCmd(a, "set", "Create an entity or update it when it exists", (*larder.Repository).CreateOrUpdate)
}

func newUpdateCmd(a *app) *cobra.Command {
	return writeCmd(a, "update", "Rewrite an existing entity", (*larder.Repository).Update)
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete an entity",
		Long:  "Delete removes an entity and its index entries. Related entities are kept.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withRepository(ctx, args[0], func(r *larder.Repository) error {
				if err := r.DeleteByID(ctx, larder.ParseValue(args[1])); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", args[0], args[1])
				return err
			})
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the declared tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			w := cmd.OutOrStdout()
			for _, m := range db.Registry().Models() {
				fmt.Fprintf(w, "%s (%s) id=%s fields=%v\n", m.Table(), m.EntityType(), m.Identifier(), m.Fields())
				for _, rel := range m.Relations() {
					fmt.Fprintf(w, "  %s -> %s %s by %s\n", rel.Name, rel.Cardinality, rel.Target, rel.ForeignKey)
				}
			}
			return nil
		},
	}
}
