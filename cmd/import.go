package cmd

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"

	"github.com/spf13/cobra"
)

var importFlags struct {
	dryRun   bool
	force    bool
	noQuests bool
	radius   float64
	filter   string
}

var importCmd = &cobra.Command{
	Use:   "import-stores",
	Short: "Import thrift stores as locations and quests once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.ImportEnabled() {
			return errors.New("THRIFT_API_BASE_URL is not set")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := ctxOrBackground(cmd)

		store, closeStore, err := openGateway(cfg, false)
		if err != nil {
			return err
		}
		defer closeStore()

		guard, closeGuard, err := newSyncGuard(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeGuard()

		opts := services.DefaultImportOptions()
		opts.DryRun = importFlags.dryRun
		opts.SyncIfStale = !importFlags.force
		opts.AlsoCreateQuests = !importFlags.noQuests
		opts.Filter = importFlags.filter
		opts.DefaultRadius = cfg.DefaultRadiusM
		if importFlags.radius > 0 {
			opts.DefaultRadius = importFlags.radius
		}

		res, err := newImporter(store, guard, cfg, nil).Import(ctx, opts)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		slog.Info("[IMPORT] finished", "skipped", res.Skipped, "dryRun", res.DryRun)
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	f := importCmd.Flags()
	f.BoolVar(&importFlags.dryRun, "dry-run", false, "preview new locations without writing")
	f.BoolVar(&importFlags.force, "force", false, "ignore the freshness window")
	f.BoolVar(&importFlags.noQuests, "no-quests", false, "create locations only")
	f.Float64Var(&importFlags.radius, "radius", 0, "radius in meters for new locations")
	f.StringVar(&importFlags.filter, "name", "", "only stores whose name or address contains this")
	rootCmd.AddCommand(importCmd)
}
