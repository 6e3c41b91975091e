// Package main provides the crdtstore CLI entry point.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/crdtstore/pkg/config"
	"github.com/orneryd/crdtstore/pkg/crdt"
	"github.com/orneryd/crdtstore/pkg/persistence"
	"github.com/orneryd/crdtstore/pkg/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crdtstore",
		Short: "crdtstore - multi-document collaborative data engine",
		Long: `crdtstore hosts a collection of CRDT documents ("blocks") that
can embed one another by reference, converging deterministically under
concurrent edits without a central coordinator.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crdtstore v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the crdtstore admin server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("data-dir", "./data", "Data directory")
	serveCmd.Flags().Uint32("client-id", 1, "Client id this process writes updates as")
	serveCmd.Flags().String("manifest", "", "Optional YAML file declaring root blocks to create on startup")
	rootCmd.AddCommand(serveCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect [block-id]",
		Short: "Print a persisted block's client count and live struct count",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	clientID, _ := cmd.Flags().GetUint32("client-id")

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("starting crdtstore v%s\n", version)
	fmt.Printf("  data directory: %s\n", dataDir)
	fmt.Printf("  client id:      %d\n", clientID)

	badgerDir := cfg.Persistence.BadgerDir
	if badgerDir == "" {
		badgerDir = filepath.Join(dataDir, "badger")
	}
	store, err := persistence.NewBadgerStore(badgerDir)
	if err != nil {
		return fmt.Errorf("opening badger store: %w", err)
	}
	defer store.Close()

	var wal *persistence.WAL
	if cfg.Persistence.WALEnabled {
		walCfg := persistence.DefaultWALConfig()
		walCfg.Dir = cfg.Persistence.WALDir
		walCfg.SyncMode = cfg.Persistence.WALSyncMode
		walCfg.BatchSyncInterval = cfg.Persistence.WALBatchSyncInterval
		wal, err = persistence.NewWAL(walCfg.Dir, walCfg)
		if err != nil {
			return fmt.Errorf("opening wal: %w", err)
		}
		defer wal.Close()
	}

	crdtStore := crdt.NewStore(clientID)
	crdtStore.GC = cfg.Store.GCEnabled
	crdtStore.AutoRef = cfg.Store.AutoRef

	roots, err := store.AllRoots()
	if err != nil {
		return fmt.Errorf("loading roots: %w", err)
	}
	restored := 0
	for name, blockID := range roots {
		snapshot, ok, err := store.LoadBlockSnapshot(blockID)
		if err != nil {
			return fmt.Errorf("loading block %q: %w", blockID, err)
		}
		if !ok {
			continue
		}
		b := crdtStore.CreateBlock(blockID, crdt.DocMap, true)
		crdtStore.Roots[name] = b
		if err := crdt.ApplyUpdateV2(b, snapshot, nil); err != nil {
			fmt.Printf("  warning: failed to replay block %q: %v\n", blockID, err)
		}
		restored++
	}
	fmt.Printf("  restored roots: %d\n", restored)

	if manifestPath, _ := cmd.Flags().GetString("manifest"); manifestPath != "" {
		if err := applyRootManifest(manifestPath, crdtStore, store); err != nil {
			return fmt.Errorf("applying root manifest: %w", err)
		}
	}

	if !cfg.Admin.Enabled {
		fmt.Println("admin server disabled (CRDTSTORE_ADMIN_ENABLED=false)")
		select {}
	}

	srvConfig := server.DefaultConfig()
	srvConfig.Address, srvConfig.Port = splitAddress(cfg.Admin.Address, srvConfig.Address, srvConfig.Port)

	admin, err := server.New(crdtStore, srvConfig)
	if err != nil {
		return fmt.Errorf("creating admin server: %w", err)
	}
	if err := admin.Start(); err != nil {
		return fmt.Errorf("starting admin server: %w", err)
	}
	fmt.Printf("  admin server:   http://%s\n", admin.Addr())
	fmt.Println()
	fmt.Println("press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nshutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return admin.Stop(ctx)
}

// applyRootManifest materializes every root manifest's declarations that
// don't already exist, registering them both in the in-memory store and
// in Badger's root table. No block snapshot is saved for them, so on
// restart runServe skips these root-table entries; the roots exist again
// only once the manifest is applied again.
func applyRootManifest(path string, crdtStore *crdt.Store, store *persistence.BadgerStore) error {
	manifest, err := config.LoadRootManifest(path)
	if err != nil {
		return err
	}
	created := 0
	for _, decl := range manifest.Roots {
		if _, ok := crdtStore.GetBlock(decl.Name); ok {
			continue
		}
		docType, ok := crdt.ParseDocType(decl.BlockType)
		if !ok {
			return fmt.Errorf("manifest root %q: unknown block_type %q", decl.Name, decl.BlockType)
		}
		b := crdtStore.CreateBlock(decl.Name, docType, true)
		if err := store.SaveRoot(decl.Name, b.ID); err != nil {
			return fmt.Errorf("persisting manifest root %q: %w", decl.Name, err)
		}
		created++
	}
	fmt.Printf("  manifest roots created: %d\n", created)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	blockID := args[0]
	dataDir, _ := cmd.Flags().GetString("data-dir")

	store, err := persistence.NewBadgerStore(filepath.Join(dataDir, "badger"))
	if err != nil {
		return fmt.Errorf("opening badger store: %w", err)
	}
	defer store.Close()

	snapshot, ok, err := store.LoadBlockSnapshot(blockID)
	if err != nil {
		return fmt.Errorf("loading block %q: %w", blockID, err)
	}
	if !ok {
		fmt.Printf("block %q not found\n", blockID)
		return nil
	}

	tmp := crdt.NewStore(0)
	b := tmp.CreateBlock(blockID, crdt.DocMap, true)
	if err := crdt.ApplyUpdateV2(b, snapshot, nil); err != nil {
		return fmt.Errorf("decoding block %q: %w", blockID, err)
	}

	liveItems := 0
	for _, vec := range b.Struct.Clients {
		for _, st := range vec {
			if !st.IsDeleted() {
				liveItems++
			}
		}
	}
	fmt.Printf("block %s\n", blockID)
	fmt.Printf("  type:       %s\n", b.DocType)
	fmt.Printf("  clients:    %d\n", len(b.Struct.Clients))
	fmt.Printf("  live items: %d\n", liveItems)
	return nil
}

func splitAddress(addr, defaultHost string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	port := defaultPort
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}
