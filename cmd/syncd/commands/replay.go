package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowbridge/syncd/internal/engine"
	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/config"
	"github.com/flowbridge/syncd/pkg/driver/fake"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/recorder"
	"github.com/flowbridge/syncd/pkg/sai"
)

var (
	replayNoDelay bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording-file>",
	Short: "Re-issue the producer requests from a recording against a running engine",
	Long: `Replay reads a recording-stream file and re-issues each producer
request (create, remove, set, bulk, get, apply-view) against a fresh
engine instance backed by the in-memory fake driver, in the order and
(unless --no-delay) with the pacing the recording captured.

It is meant for reproducing a reported sequence offline, not for
restoring production state: replay always starts from a cold engine,
never an existing store.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayNoDelay, "no-delay", false, "ignore recorded sleep markers and replay as fast as possible")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	records, err := recorder.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to parse recording: %w", err)
	}

	ctx := context.Background()
	e := engine.New(cfg, memory.New(), fake.New(), recorder.NullStream{}, engine.Metrics{}, 1)
	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	r := &replayer{ctx: ctx, engine: e}
	for i, rec := range records {
		if err := r.apply(rec); err != nil {
			return fmt.Errorf("replay: record %d (%c): %w", i+1, rec.Tag, err)
		}
	}

	fmt.Printf("replayed %d records (%d applied)\n", len(records), r.applied)
	return nil
}

// replayer re-issues one recorded producer request at a time against a
// live engine and counts how many it applied. It keeps no view state of
// its own; the engine decides which view each record lands in.
type replayer struct {
	ctx     context.Context
	engine  *engine.Engine
	applied int
}

func (r *replayer) apply(rec recorder.Record) error {
	switch rec.Tag {
	case recorder.TagCreate:
		return r.applyCreate(rec)
	case recorder.TagRemove:
		return r.applyRemove(rec)
	case recorder.TagSet:
		return r.applySet(rec)
	case recorder.TagBulkCreate:
		return r.applyBulkCreate(rec)
	case recorder.TagBulkSet:
		return r.applyBulkSet(rec)
	case recorder.TagGet:
		return r.applyGet(rec)
	case recorder.TagApplyRequest:
		r.applied++
		return r.engine.ApplyView(r.ctx)
	case recorder.TagNotify:
		return r.applyNotify(rec)
	case recorder.TagSleep:
		return r.applySleep(rec)
	case recorder.TagGetResponse, recorder.TagApplyResponse, recorder.TagComment:
		// Informational; the live replay produces its own outcomes.
		return nil
	default:
		logger.Warn("replay: unknown tag, skipping", "tag", string(rec.Tag))
		return nil
	}
}

func (r *replayer) applyCreate(rec recorder.Record) error {
	fields := rec.Fields()
	if len(fields) < 1 {
		return fmt.Errorf("missing key")
	}
	key, err := sai.ParseKey(fields[0])
	if err != nil {
		return err
	}
	attrs, err := recorder.ParseAttrs(key.Type, strings.Join(fields[1:], "|"))
	if err != nil {
		return err
	}
	return r.engine.Create(r.ctx, key.Type, key, attrs)
}

func (r *replayer) applyRemove(rec recorder.Record) error {
	key, err := sai.ParseKey(rec.Data)
	if err != nil {
		return err
	}
	return r.engine.Remove(r.ctx, key.Type, key)
}

func (r *replayer) applySet(rec recorder.Record) error {
	fields := rec.Fields()
	if len(fields) < 2 {
		return fmt.Errorf("missing key/attribute pair")
	}
	key, err := sai.ParseKey(fields[0])
	if err != nil {
		return err
	}
	id, v, err := recorder.ParseAttr(key.Type, strings.Join(fields[1:], "|"))
	if err != nil {
		return err
	}
	return r.engine.Set(r.ctx, key.Type, key, id, v)
}

func (r *replayer) applyGet(rec recorder.Record) error {
	fields := rec.Fields()
	if len(fields) < 1 {
		return fmt.Errorf("missing key")
	}
	key, err := sai.ParseKey(fields[0])
	if err != nil {
		return err
	}
	var ids []sai.AttrID
	if len(fields) > 1 && fields[1] != "" {
		for _, name := range strings.Split(fields[1], ",") {
			ids = append(ids, sai.AttrID(name))
		}
	}
	_, err = r.engine.Get(r.ctx, key.Type, key, ids)
	return err
}

// applyBulkCreate/applyBulkSet split on ";" and "#" directly rather than
// Fields(), since a bulk record's per-key parts each carry their own
// "|"-joined attribute pairs that Fields() would otherwise flatten
// indistinguishably from the key boundaries.
func (r *replayer) applyBulkCreate(rec recorder.Record) error {
	if rec.Data == "" {
		return nil
	}
	var (
		keys  []sai.Key
		attrs []map[sai.AttrID]sai.Value
		t     sai.ObjectType
	)
	for _, part := range strings.Split(rec.Data, ";") {
		keyStr, attrStr, ok := strings.Cut(part, "#")
		if !ok {
			return fmt.Errorf("invalid bulk-create part %q", part)
		}
		key, err := sai.ParseKey(keyStr)
		if err != nil {
			return err
		}
		a, err := recorder.ParseAttrs(key.Type, attrStr)
		if err != nil {
			return err
		}
		keys = append(keys, key)
		attrs = append(attrs, a)
		t = key.Type
	}
	return r.engine.BulkCreate(r.ctx, t, keys, attrs)
}

func (r *replayer) applyBulkSet(rec recorder.Record) error {
	if rec.Data == "" {
		return nil
	}
	var (
		keys   []sai.Key
		values []sai.Value
		id     sai.AttrID
		t      sai.ObjectType
	)
	for _, part := range strings.Split(rec.Data, ";") {
		keyStr, attrStr, ok := strings.Cut(part, "#")
		if !ok {
			return fmt.Errorf("invalid bulk-set part %q", part)
		}
		key, err := sai.ParseKey(keyStr)
		if err != nil {
			return err
		}
		attrID, v, err := recorder.ParseAttr(key.Type, attrStr)
		if err != nil {
			return err
		}
		keys = append(keys, key)
		values = append(values, v)
		id, t = attrID, key.Type
	}
	return r.engine.BulkSet(r.ctx, t, keys, id, values)
}

func (r *replayer) applyNotify(rec recorder.Record) error {
	name, _, _ := strings.Cut(rec.Data, "|")
	if name == "INIT_VIEW" {
		return r.engine.InitView(r.ctx)
	}
	logger.Info("replay: skipping non-producer notification", "name", name)
	return nil
}

func (r *replayer) applySleep(rec recorder.Record) error {
	if replayNoDelay {
		return nil
	}
	d, err := time.ParseDuration(rec.Data)
	if err != nil {
		return fmt.Errorf("invalid sleep duration %q: %w", rec.Data, err)
	}
	time.Sleep(d)
	return nil
}
