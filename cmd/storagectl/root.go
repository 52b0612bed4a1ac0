// Package storagectl is a cobra-based operator CLI for initializing and
// tearing down object storage (component E's DDL sub-concern, spec §4.6)
// against a configured storage.Manager. A host application wires its own
// mappings and imports this package's NewRootCmd from its main package;
// this package carries no main() of its own, following the convention of a
// library-shaped cmd package rather than a bare script.
package storagectl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esoco/esoco-storage/mapping"
	"github.com/esoco/esoco-storage/storage"
	"github.com/esoco/esoco-storage/storagelog"
)

// NamedMapping pairs an operator-facing name (used on the command line)
// with the mapping.Mapping it resolves to. A host registers the set of
// mappings it wants storagectl to operate on; this package has no way to
// discover application types on its own.
type NamedMapping struct {
	Name    string
	Mapping mapping.Mapping
}

// Registry resolves command-line type names to mappings.
type Registry struct {
	byName map[string]mapping.Mapping
}

// NewRegistry builds a Registry from mappings.
func NewRegistry(mappings ...NamedMapping) *Registry {
	r := &Registry{byName: make(map[string]mapping.Mapping, len(mappings))}
	for _, nm := range mappings {
		r.byName[nm.Name] = nm.Mapping
	}
	return r
}

func (r *Registry) resolve(names []string) ([]mapping.Mapping, error) {
	if len(names) == 0 {
		out := make([]mapping.Mapping, 0, len(r.byName))
		for _, m := range r.byName {
			out = append(out, m)
		}
		return out, nil
	}
	out := make([]mapping.Mapping, 0, len(names))
	for _, name := range names {
		m, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("storagectl: no mapping registered under name %q", name)
		}
		out = append(out, m)
	}
	return out, nil
}

// NewRootCmd builds the storagectl command tree: init/drop/has subcommands
// that open key's storage and run Handle.InitObjectStorage/
// RemoveObjectStorage/HasObjectStorage against every named mapping (or
// every registered mapping, if none are named).
func NewRootCmd(manager *storage.Manager, registry *Registry) *cobra.Command {
	var key string

	root := &cobra.Command{
		Use:   "storagectl",
		Short: "Initialize and inspect esoco-storage object storage",
	}
	root.PersistentFlags().StringVar(&key, "key", string(storage.DefaultKey), "storage definition key")

	root.AddCommand(
		newInitCmd(manager, registry, &key),
		newDropCmd(manager, registry, &key),
		newHasCmd(manager, registry, &key),
	)
	return root
}

func withHandle(ctx context.Context, manager *storage.Manager, key string, fn func(h *storage.Handle) error) error {
	h, err := manager.GetStorage(ctx, "storagectl", storage.Key(key))
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(h)
}

func newInitCmd(manager *storage.Manager, registry *Registry, key *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init [type...]",
		Short: "Create object storage for the named types (or all registered types)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := registry.resolve(args)
			if err != nil {
				return err
			}
			return withHandle(cmd.Context(), manager, *key, func(h *storage.Handle) error {
				for _, m := range mappings {
					if err := h.InitObjectStorage(cmd.Context(), m); err != nil {
						return fmt.Errorf("init %s: %w", m.Type(), err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", m.Type())
				}
				return nil
			})
		},
	}
}

func newDropCmd(manager *storage.Manager, registry *Registry, key *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drop [type...]",
		Short: "Drop object storage for the named types (or all registered types)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := registry.resolve(args)
			if err != nil {
				return err
			}
			return withHandle(cmd.Context(), manager, *key, func(h *storage.Handle) error {
				for _, m := range mappings {
					if err := h.RemoveObjectStorage(cmd.Context(), m); err != nil {
						return fmt.Errorf("drop %s: %w", m.Type(), err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", m.Type())
				}
				return nil
			})
		},
	}
}

func newHasCmd(manager *storage.Manager, registry *Registry, key *string) *cobra.Command {
	return &cobra.Command{
		Use:   "has [type...]",
		Short: "Report whether object storage already exists for the named types",
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := registry.resolve(args)
			if err != nil {
				return err
			}
			return withHandle(cmd.Context(), manager, *key, func(h *storage.Handle) error {
				for _, m := range mappings {
					exists, err := h.HasObjectStorage(cmd.Context(), m)
					if err != nil {
						return fmt.Errorf("has %s: %w", m.Type(), err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", m.Type(), exists)
				}
				return nil
			})
		},
	}
}

// NewLogger builds the development-mode logger storagectl's own main()
// would pass to storage.NewManager, kept here so hosts don't need to
// import storagelog separately just to stand up a CLI.
func NewLogger() (storagelog.Logger, error) {
	return storagelog.NewDevelopment()
}
