// Package forecast sequences dataset regeneration, model execution and
// interpretation into one forecast response per request.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// datasetFile, inputFile and regressionFile live inside the request workspace
const (
	datasetFile    = "ventas.json"
	inputFile      = "input.csv"
	regressionFile = "regression.json"
)

// Orchestrator runs the forecast pipeline. Stages run strictly in order and
// nothing is retried: the first failure ends the request.
// ⭐ SSOT: forecast pipeline coordination lives here only
type Orchestrator struct {
	regenerator  contracts.DatasetRegenerator
	executor     contracts.ModelExecutor
	interpreter  contracts.Interpreter
	workspaces   *Workspaces
	cache        *SideCache
	regenTimeout time.Duration
	logger       *logger.Logger
}

// Options tune the orchestrator
type Options struct {
	Workspaces   *Workspaces
	Cache        *SideCache // optional
	RegenTimeout time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	regenerator contracts.DatasetRegenerator,
	executor contracts.ModelExecutor,
	interpreter contracts.Interpreter,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	if opts.RegenTimeout <= 0 {
		opts.RegenTimeout = time.Minute
	}
	return &Orchestrator{
		regenerator:  regenerator,
		executor:     executor,
		interpreter:  interpreter,
		workspaces:   opts.Workspaces,
		cache:        opts.Cache,
		regenTimeout: opts.RegenTimeout,
		logger:       log.Component("forecast"),
	}
}

// Cache exposes the side cache (may be nil)
func (o *Orchestrator) Cache() *SideCache { return o.cache }

// RunClassic regenerates the dataset, runs one model and returns its payload
func (o *Orchestrator) RunClassic(ctx context.Context, req contracts.ForecastRequest) (*contracts.ClassicForecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ws, err := o.workspaces.Create()
	if err != nil {
		return nil, apperr.Internal("allocate forecast workspace", err)
	}
	defer o.release(ws)

	log := o.logger.WithRequestID(ws.ID).WithFields(map[string]interface{}{
		"mes":     req.Period,
		"modelo":  req.ModelID,
		"cliente": req.ClientID,
	})
	start := time.Now()
	log.Info("classic forecast started")

	// Stage 1: regenerate
	datasetPath := ws.Path(datasetFile)
	if err := o.regenerate(ctx, datasetPath); err != nil {
		log.WithError(err).Error("dataset regeneration failed")
		return nil, err
	}
	log.Debug("dataset regenerated")

	// Stage 2: execute
	raw, err := o.executor.ExecuteClassic(ctx, contracts.ClassicInput{
		DatasetPath: datasetPath,
		Period:      req.Period,
		ModelID:     req.ModelID,
		ClientID:    req.ClientID,
		Product:     req.Product,
	})
	if err != nil {
		err = ensureKind(err, apperr.KindModelExecution)
		log.WithError(err).Error("classic model execution failed")
		return nil, err
	}

	// Stage 3: parse and validate
	result, err := parseClassic(raw)
	if err != nil {
		log.WithError(err).Error("classic model output rejected")
		return nil, err
	}

	// Stage 4: best-effort side cache
	o.cache.Store(ctx, req, result.Raw)

	log.WithFields(map[string]interface{}{
		"weeks":    len(result.Series),
		"duration": time.Since(start),
	}).Info("classic forecast completed")

	return result, nil
}

// RunProGPT evaluates several candidate models over rows and labels them
func (o *Orchestrator) RunProGPT(ctx context.Context, rows []map[string]interface{}) (*contracts.ProForecast, error) {
	if len(rows) == 0 {
		return nil, apperr.NoData("at least one row is required")
	}

	ws, err := o.workspaces.Create()
	if err != nil {
		return nil, apperr.Internal("allocate forecast workspace", err)
	}
	defer o.release(ws)

	log := o.logger.WithRequestID(ws.ID).WithField("rows", len(rows))
	start := time.Now()
	log.Info("pro forecast started")

	// Stage 1: columnar input
	var buf bytes.Buffer
	if err := WriteColumnar(&buf, rows); err != nil {
		return nil, apperr.Validation("rows cannot be serialized").WithDetail(err.Error())
	}
	csvPath := ws.Path(inputFile)
	if err := writeFile(csvPath, buf.Bytes()); err != nil {
		return nil, apperr.Internal("write pro input", err)
	}

	// Stage 2: execute
	raw, err := o.executor.ExecutePro(ctx, contracts.ProInput{CSVPath: csvPath})
	if err != nil {
		err = ensureKind(err, apperr.KindModelExecution)
		log.WithError(err).Error("pro model execution failed")
		return nil, err
	}

	out, err := parsePro(raw)
	if err != nil {
		log.WithError(err).Error("pro model output rejected")
		return nil, err
	}
	log.WithField("models", len(out.Models)).Debug("pro models evaluated")

	// Stage 3: interpret
	metrics := make([]contracts.ModelMetricsInput, 0, len(out.Models))
	for _, m := range out.Models {
		metrics = append(metrics, contracts.ModelMetricsInput{
			ModelID: m.ModelID,
			MAE:     m.Metrics.MAE,
			MAPE:    m.Metrics.MAPE,
			R2:      m.Metrics.R2,
		})
	}

	interps, err := o.interpreter.Interpret(ctx, metrics)
	if err != nil {
		err = ensureKind(err, apperr.KindInterpretation)
		log.WithError(err).Error("interpretation failed")
		return nil, err
	}

	// Stage 4: merge
	models, report := Merge(out.Models, interps)
	report.log(log)

	log.WithFields(map[string]interface{}{
		"models":   len(models),
		"labelled": len(models) - len(report.Missing) - len(report.NonConformed),
		"duration": time.Since(start),
	}).Info("pro forecast completed")

	return &contracts.ProForecast{
		Models:     models,
		Historical: out.Historical,
		Blended:    out.Blended,
	}, nil
}

// RunProRegression trains one regression model over uploaded rows and returns
// its predictions. Rows are filtered by the script, not here.
func (o *Orchestrator) RunProRegression(ctx context.Context, req contracts.RegressionRequest) (*contracts.RegressionForecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ws, err := o.workspaces.Create()
	if err != nil {
		return nil, apperr.Internal("allocate forecast workspace", err)
	}
	defer o.release(ws)

	log := o.logger.WithRequestID(ws.ID).WithFields(map[string]interface{}{
		"rows":     len(req.Rows),
		"target":   req.Target,
		"features": len(req.Features),
		"modelo":   req.ModelID,
	})
	start := time.Now()
	log.Info("pro regression started")

	// Stage 1: request file
	input, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.Validation("rows cannot be serialized").WithDetail(err.Error())
	}
	inputPath := ws.Path(regressionFile)
	if err := writeFile(inputPath, input); err != nil {
		return nil, apperr.Internal("write regression input", err)
	}

	// Stage 2: execute
	raw, err := o.executor.ExecuteProRegression(ctx, contracts.RegressionInput{InputPath: inputPath})
	if err != nil {
		err = ensureKind(err, apperr.KindModelExecution)
		log.WithError(err).Error("regression model execution failed")
		return nil, err
	}

	// Stage 3: parse and validate
	result, err := parseRegression(raw)
	if err != nil {
		log.WithError(err).Error("regression model output rejected")
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"predictions":   len(result.Predictions),
		"error_percent": result.ErrorPercent,
		"duration":      time.Since(start),
	}).Info("pro regression completed")

	return result, nil
}

func (o *Orchestrator) regenerate(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, o.regenTimeout)
	defer cancel()

	if err := o.regenerator.Regenerate(ctx, path); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperr.Regeneration("dataset regeneration timed out", err)
		}
		return ensureKind(err, apperr.KindRegeneration)
	}
	return nil
}

func (o *Orchestrator) release(ws *Workspace) {
	if err := ws.Release(); err != nil {
		o.logger.WithError(err).WithField("workspace", ws.Dir).Warn("workspace cleanup failed")
	}
}

// ensureKind keeps typed errors and classifies untyped ones as kind
func ensureKind(err error, kind apperr.Kind) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch kind {
	case apperr.KindRegeneration:
		return apperr.Regeneration(err.Error(), err)
	case apperr.KindInterpretation:
		return apperr.Interpretation(err.Error(), err)
	default:
		return apperr.ModelExecution(err.Error(), err)
	}
}
