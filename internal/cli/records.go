package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/guard"
	"github.com/mesh-intelligence/shelf/internal/shelf"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// withCollection attaches a shelf, resolves the named collection, runs fn
// and detaches.
func withCollection(cmd *cobra.Command, opts *rootOptions, name string, fn func(*guard.Guard) error) (err error) {
	s, err := setup(cmd, opts)
	if err != nil {
		return err
	}

	sh := shelf.New()
	if err := sh.Attach(s.config); err != nil {
		return fmt.Errorf("attaching shelf: %w", err)
	}
	defer func() {
		if derr := sh.Detach(); derr != nil && err == nil {
			err = fmt.Errorf("detaching shelf: %w", derr)
		}
	}()

	g, err := sh.Collection(name)
	if err != nil {
		return err
	}
	return fn(g)
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <kind> [param=value...]",
		Short: "Query a collection",
		Long: `Query filters, sorts, projects and paginates a collection.

Parameters are field filters (literal, x*, *x or *x*) and the controls
sort, field, fields, limit and offset. Filters narrow the collection in
the order given. Sorting, then projection (field or fields), then the
limit/offset window always follow, whatever their position.`,
		Example: `  shelf query bookmark Category=News sort=name
  shelf query bookmark 'Title=*a*' fields=Id,Title
  shelf query bookmark field=Category
  shelf query bookmark limit=0 offset=10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := types.QueryFromArgs(args[1:])
			if err != nil {
				return userErrorf("%v", err)
			}
			return withCollection(cmd, opts, args[0], func(g *guard.Guard) error {
				res, err := g.Query(cmd.Context(), q)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "get <kind> <id>",
		Short:   "Get a record by id",
		Example: "  shelf get bookmark 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withCollection(cmd, opts, args[0], func(g *guard.Guard) error {
				rec, err := g.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add <kind> <json>",
		Short:   "Add a record",
		Long:    "Add validates the record, assigns the next id and stores it. Any Id in the input is ignored.",
		Example: `  shelf add bookmark '{"Title":"Go","Url":"https://go.dev","Category":"Tech"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			return withCollection(cmd, opts, args[0], func(g *guard.Guard) error {
				stored, _, err := g.Add(cmd.Context(), rec)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stored)
			})
		},
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "update <kind> <id> <json>",
		Short:   "Replace a record",
		Example: `  shelf update bookmark 3 '{"Title":"Go","Url":"https://go.dev"}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			rec, err := parseRecord(args[2])
			if err != nil {
				return err
			}
			return withCollection(cmd, opts, args[0], func(g *guard.Guard) error {
				stored, _, err := g.Update(cmd.Context(), id, rec)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stored)
			})
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <kind> <id>",
		Short:   "Remove a record",
		Example: "  shelf remove bookmark 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withCollection(cmd, opts, args[0], func(g *guard.Guard) error {
				found, _, err := g.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !found {
					return types.Newf(types.RecordNotFound, "The resource [%d] does not exist.", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %d\n", g.Kind().Name, id)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, userErrorf("invalid id %q", s)
	}
	return id, nil
}

func parseRecord(s string) (types.Record, error) {
	var rec types.Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return types.Record{}, userErrorf("invalid record: %v", err)
	}
	return rec, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
