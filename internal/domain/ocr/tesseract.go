package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"kvmd-streamer-go/internal/domain/eventbus"
	"kvmd-streamer-go/internal/domain/image"
	"kvmd-streamer-go/internal/platform/config"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/logging"
)

const trainedDataExt = ".traineddata"

// Data files in tessdata that are not recognition languages.
var nonLanguageData = map[string]struct{}{"osd": {}, "equ": {}}

// Langs lists the languages reported in State.
type Langs struct {
	Available []string `json:"available"`
	Default   []string `json:"default"`
}

// State is the OCR descriptor served by GET /streamer/ocr.
type State struct {
	Enabled bool  `json:"enabled"`
	Langs   Langs `json:"langs"`
}

// CommandFunc runs name with args, feeding stdin, and returns stdout.
type CommandFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// Publisher is the subset of the event bus used to report recognitions.
type Publisher interface {
	PublishAsync(topic string, args ...any) bool
}

// Tesseract recognises text by running the tesseract CLI.
type Tesseract struct {
	cfg     config.OCRConfig
	sem     *semaphore.Weighted
	command CommandFunc
	bus     Publisher
	logger  *logging.Logger
}

type Option func(*Tesseract)

// WithCommand replaces the process runner.
func WithCommand(fn CommandFunc) Option {
	return func(t *Tesseract) { t.command = fn }
}

func WithPublisher(bus Publisher) Option {
	return func(t *Tesseract) { t.bus = bus }
}

func NewTesseract(cfg config.OCRConfig, logger *logging.Logger, opts ...Option) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tesseract{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.Workers),
		command: runCommand,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AvailableLangs lists the *.traineddata languages in the tessdata dir.
func (t *Tesseract) AvailableLangs(_ context.Context) ([]string, error) {
	if !t.cfg.Enabled {
		return []string{}, nil
	}
	entries, err := os.ReadDir(t.cfg.TessdataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, apperrors.Wrap(apperrors.KindPlatform, "ocr.available_langs", "failed to read tessdata dir", err)
	}

	langs := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, trainedDataExt) {
			continue
		}
		lang := strings.ToLower(strings.TrimSuffix(name, trainedDataExt))
		if _, skip := nonLanguageData[lang]; skip || lang == "" {
			continue
		}
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs, nil
}

// DefaultLangs returns the configured default languages that are installed.
func (t *Tesseract) DefaultLangs(ctx context.Context) ([]string, error) {
	available, err := t.AvailableLangs(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, lang := range t.cfg.DefaultLangs {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if slices.Contains(available, lang) && !slices.Contains(out, lang) {
			out = append(out, lang)
		}
	}
	return out, nil
}

func (t *Tesseract) State(ctx context.Context) (State, error) {
	available, err := t.AvailableLangs(ctx)
	if err != nil {
		return State{}, err
	}
	defaults, err := t.DefaultLangs(ctx)
	if err != nil {
		return State{}, err
	}
	return State{
		Enabled: t.cfg.Enabled && len(available) > 0,
		Langs:   Langs{Available: available, Default: defaults},
	}, nil
}

// Recognize crops data to region and returns the recognised text. Calls
// are limited to ocr.workers at a time.
func (t *Tesseract) Recognize(ctx context.Context, data []byte, langs []string, region Region) (string, error) {
	if !t.cfg.Enabled {
		return "", apperrors.New(apperrors.KindUnavailable, "ocr.recognize", "OCR is disabled")
	}
	if len(langs) == 0 {
		return "", apperrors.New(apperrors.KindUnavailable, "ocr.recognize", "no OCR languages available")
	}

	info, err := image.Inspect(data, image.Limits{})
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindDomain, "ocr.decode", "failed to decode snapshot", err)
	}
	rect, err := region.Resolve(info.Width, info.Height)
	if err != nil {
		return "", err
	}
	cropped, err := image.CropPNG(data, rect)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindDomain, "ocr.crop", "failed to crop snapshot", err)
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer t.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	args := []string{"stdin", "stdout", "-l", strings.Join(langs, "+")}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	start := time.Now()
	out, err := t.command(ctx, cropped, t.cfg.Binary, args...)
	if err != nil {
		t.logger.ErrorTag("OCR", "recognition failed: langs=%v region=%v err=%v", langs, rect, err)
		return "", apperrors.Wrap(apperrors.KindDomain, "ocr.recognize", "tesseract failed", err)
	}

	text := string(out)
	if t.bus != nil {
		t.bus.PublishAsync(eventbus.EventOCRRecognized, eventbus.OCRRecognizedEvent{
			Langs:    langs,
			Chars:    len(text),
			Duration: time.Since(start),
			At:       time.Now(),
		})
	}
	return text, nil
}

// commandWaitDelay bounds the wait for pipe holders once ctx has killed tesseract.
var commandWaitDelay = 2 * time.Second

func runCommand(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = commandWaitDelay
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w: %s", filepath.Base(name), strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
