package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"aura/internal/config"
	"aura/internal/index/chunk"
	"aura/internal/index/ingest"
	"aura/internal/index/store"
	"aura/internal/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Ingest a workspace into the local code index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.workspaces.Register(cmd.Context(), root, "", nil)
		if err != nil {
			return fmt.Errorf("register workspace: %w", err)
		}

		indexed, err := indexWorkspace(cmd.Context(), a.cfg, a.store, ws.ID, ws.Path)
		if err != nil {
			return err
		}

		fmt.Printf("indexed %d files in workspace %s (%s)\n", indexed, ws.ID, ws.Path)
		return nil
	},
}

// indexWorkspace walks root and (re)ingests every file into workspaceID's
// index, atomically replacing each file's prior chunks/nodes/edges. Shared
// by the index command and the queue.Func a scheduled reindex trigger
// submits to internal/index/queue.
func indexWorkspace(ctx context.Context, cfg *config.Config, st *store.Store, workspaceID, root string) (int, error) {
	fs := afero.NewOsFs()
	opts := chunk.Options{Size: cfg.Index.ChunkSize, Overlap: cfg.Index.ChunkOverlap}
	if opts.Size <= 0 {
		opts = chunk.DefaultOptions()
	}

	var indexed int
	walkErr := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		res, ingestErr := ingest.ForPath(path).Ingest(fs, path, opts)
		if ingestErr != nil {
			logging.L().Warn("index: skipping file", "path", path, "error", ingestErr)
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if err := st.ReplaceFile(ctx, workspaceID, rel, res); err != nil {
			return fmt.Errorf("store %s: %w", rel, err)
		}
		indexed++
		return nil
	})
	return indexed, walkErr
}
