// Package devdata 生成开发环境用的假数据
//
// 同一个种子总是生成相同的数据，方便在本地复现问题。
package devdata

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"ir-api/internal/shared/model"
)

// Instruments 生成器使用的仪器列表
var Instruments = []string{
	"ALF", "ARGUS", "CHIPIR", "CHRONUS", "CRISP", "EMU", "ENGINX", "GEM", "HET", "HIFI",
	"HRPD", "IMAT", "INES", "INTER", "IRIS", "LARMOR", "LET", "LOQ", "MAPS", "MARI",
	"MERLIN", "MUSR", "NILE", "NIMROD", "OFFSPEC", "OSIRIS", "PEARL", "POLARIS", "POLREF",
	"SANDALS", "SANS2D", "SURF", "SXD", "TOSCA", "VESUVIO", "WISH", "ZOOM",
}

const (
	minExperiment = 10000
	maxExperiment = 99999
)

// MaxReductions 单次生成的上限，受实验编号唯一性约束
const MaxReductions = maxExperiment - minExperiment + 1

var (
	firstNames = []string{"Ada", "Ben", "Chloe", "Dev", "Elena", "Farid", "Grace", "Hiro", "Ines", "Jonas"}
	lastNames  = []string{"Smith", "Jones", "Patel", "Okafor", "Nakamura", "Garcia", "Novak", "Brown", "Kowalski", "Lee"}
	words      = []string{
		"powder", "sample", "magnetic", "crystal", "phonon", "lattice", "thin", "film", "cooling",
		"vanadium", "empty", "can", "calibration", "spin", "wave", "excitation", "hydrogen", "pressure",
	}
	inputKeys = []string{"ei", "sam_mass", "sam_rmm", "monovan", "remove_bkg", "mask_file", "wbvan", "sum_runs", "runno", "cycle"}
)

// Store 生成器需要的写入接口
type Store interface {
	CreateInstrument(ctx context.Context, inst *model.Instrument) error
	CreateScript(ctx context.Context, script *model.Script) error
	CreateRun(ctx context.Context, run *model.Run) error
	CreateReduction(ctx context.Context, r *model.Reduction) error
	LinkRunReduction(ctx context.Context, runID, reductionID int64) error
}

// Generator 假数据生成器
type Generator struct {
	store       Store
	rng         *rand.Rand
	instruments []*model.Instrument
	experiments map[int64]bool
}

// NewGenerator 创建生成器
func NewGenerator(store Store, seed int64) *Generator {
	return &Generator{
		store:       store,
		rng:         rand.New(rand.NewSource(seed)),
		experiments: make(map[int64]bool),
	}
}

// Generate 写入全部仪器和 count 个 Reduction
//
// 每个 Reduction 关联一个随机仪器上的 Run 和一个脚本快照。
func (g *Generator) Generate(ctx context.Context, count int) error {
	if count < 0 || count > MaxReductions {
		return fmt.Errorf("count must be between 0 and %d, got %d", MaxReductions, count)
	}
	if err := g.createInstruments(ctx); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if _, err := g.Reduction(ctx); err != nil {
			return fmt.Errorf("reduction %d: %w", i, err)
		}
	}
	return nil
}

func (g *Generator) createInstruments(ctx context.Context) error {
	if len(g.instruments) > 0 {
		return nil
	}
	for _, name := range Instruments {
		inst := &model.Instrument{Name: name}
		if err := g.store.CreateInstrument(ctx, inst); err != nil {
			return fmt.Errorf("create instrument %s: %w", name, err)
		}
		g.instruments = append(g.instruments, inst)
	}
	return nil
}

// Reduction 写入一个 Reduction 及其关联的 Run 和脚本
func (g *Generator) Reduction(ctx context.Context) (*model.Reduction, error) {
	if err := g.createInstruments(ctx); err != nil {
		return nil, err
	}
	inst := g.instruments[g.rng.Intn(len(g.instruments))]

	script := g.script()
	if err := g.store.CreateScript(ctx, script); err != nil {
		return nil, fmt.Errorf("create script: %w", err)
	}
	run := g.run(inst)
	if err := g.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	reduction := g.reduction()
	reduction.ScriptID = &script.ID
	if err := g.store.CreateReduction(ctx, reduction); err != nil {
		return nil, fmt.Errorf("create reduction: %w", err)
	}
	if err := g.store.LinkRunReduction(ctx, run.ID, reduction.ID); err != nil {
		return nil, fmt.Errorf("link run %d: %w", run.ID, err)
	}
	run.Instrument = inst
	reduction.Script = script
	reduction.Runs = []*model.Run{run}
	return reduction, nil
}

// ============================================================================
// 随机字段
// ============================================================================

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) startTime() time.Time {
	return time.Date(
		g.between(2017, 2023), time.Month(g.between(1, 12)), g.between(1, 28),
		g.between(0, 23), g.between(0, 59), g.between(0, 59), 0, time.UTC)
}

func (g *Generator) experimentNumber() int64 {
	for {
		n := int64(g.between(minExperiment, maxExperiment))
		if !g.experiments[n] {
			g.experiments[n] = true
			return n
		}
	}
}

func (g *Generator) sentence(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[g.rng.Intn(len(words))]
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func (g *Generator) person() string {
	return firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))]
}

func (g *Generator) run(inst *model.Instrument) *model.Run {
	start := g.startTime()
	experiment := g.experimentNumber()
	raw := int64(g.between(1000, 9999))
	return &model.Run{
		Filename: fmt.Sprintf("/archive/NDX%s/Instrument/data/cycle_%d_0%d/%s%d.nxs",
			inst.Name, g.between(15, 23), g.between(1, 3), inst.Name, experiment),
		ExperimentNumber: experiment,
		Title:            g.sentence(10),
		Users:            g.person() + ", " + g.person(),
		RunStart:         start,
		RunEnd:           start.Add(time.Duration(g.between(0, 50)) * time.Minute),
		GoodFrames:       g.rng.Int63n(raw + 1),
		RawFrames:        raw,
		InstrumentID:     inst.ID,
	}
}

var states = []model.ReductionState{
	model.ReductionStateNotStarted,
	model.ReductionStateSuccessful,
	model.ReductionStateUnsuccessful,
	model.ReductionStateError,
}

func (g *Generator) reduction() *model.Reduction {
	r := &model.Reduction{
		ReductionState:  states[g.rng.Intn(len(states))],
		ReductionInputs: g.inputs(),
	}
	if r.ReductionState != model.ReductionStateNotStarted {
		start := g.startTime()
		end := start.Add(time.Duration(g.between(0, 50)) * time.Minute)
		message := g.sentence(10)
		outputs := "What should this be?"
		r.ReductionStart = &start
		r.ReductionEnd = &end
		r.ReductionStatusMessage = &message
		r.ReductionOutputs = &outputs
	}
	return r
}

// inputs 随机取若干键，值类型在字符串、整数、布尔、浮点之间轮换
func (g *Generator) inputs() model.ReductionInputs {
	n := g.between(1, len(inputKeys))
	in := model.ReductionInputs{}
	for _, i := range g.rng.Perm(len(inputKeys))[:n] {
		switch g.rng.Intn(4) {
		case 0:
			in[inputKeys[i]] = words[g.rng.Intn(len(words))]
		case 1:
			in[inputKeys[i]] = g.rng.Intn(100000)
		case 2:
			in[inputKeys[i]] = g.rng.Intn(2) == 1
		default:
			in[inputKeys[i]] = float64(g.rng.Intn(100000)) / 100
		}
	}
	return in
}

func (g *Generator) script() *model.Script {
	b := make([]byte, 20)
	g.rng.Read(b)
	sha := hex.EncodeToString(b)
	return &model.Script{Script: "import os\nprint('foo')\n", SHA: &sha}
}

// ============================================================================
// 清理
// ============================================================================

// resetTables 按外键依赖顺序清空
var resetTables = []string{"runs_reductions", "reductions", "runs", "scripts", "instruments"}

// Reset 清空所有表
func Reset(ctx context.Context, db *sql.DB) error {
	for _, table := range resetTables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// CheckLocal 只允许本地数据库
//
// host 为空表示 SQLite。
func CheckLocal(host string) error {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return nil
	}
	return fmt.Errorf("database host %q is not local", host)
}
