package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/config"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/kvstore/badger"
	"github.com/flowbridge/syncd/pkg/recorder"
)

var dumpTable string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump persisted view and identity-map tables",
	Long: `Print the contents of one of syncd's persisted tables:
asic_state, temp_asic_state, vidtorid, ridtovid, hidden, lanes, or
vidcounter. Defaults to asic_state.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpTable, "table", "asic_state", "table to dump")
}

var dumpTables = map[string]string{
	"asic_state":      kvstore.TableAsicState,
	"temp_asic_state": kvstore.TableTempAsicState,
	"vidtorid":        kvstore.TableVIDToRID,
	"ridtovid":        kvstore.TableRIDToVID,
	"hidden":          kvstore.TableHidden,
	"lanes":           kvstore.TableLanes,
	"vidcounter":      kvstore.TableVIDCounters,
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	table, ok := dumpTables[dumpTable]
	if !ok {
		return fmt.Errorf("unknown table %q", dumpTable)
	}

	store, err := badger.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	rows, err := store.Scan(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", table, err)
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch dumpTable {
		case "asic_state", "temp_asic_state":
			obj, err := asicview.DeserializeObject(rows[key])
			if err != nil {
				return fmt.Errorf("failed to deserialize row %s: %w", key, err)
			}
			fmt.Printf("%s status=%s %s\n", key, obj.Status, recorder.FormatAttrs(obj.Attrs))
		default:
			fmt.Printf("%s=%s\n", key, rows[key])
		}
	}
	return nil
}
