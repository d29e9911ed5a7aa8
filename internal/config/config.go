// Package config resolves application settings from defaults, the user
// preferences file, a .env file and the process environment. Command-line
// flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"pcb-extractor/internal/component"
	"pcb-extractor/internal/logging"
	"pcb-extractor/internal/pipeline"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PCBX_"

// DefaultEnvFile is the dotenv file read when none is given.
const DefaultEnvFile = ".env"

// Preference and environment keys (environment names are upper-cased and
// prefixed with EnvPrefix).
const (
	KeyBlurKernelIndex       = "blur_kernel_index"
	KeySigmaIndex            = "sigma_index"
	KeyClaheClipIndex        = "clahe_clip_index"
	KeySeparationKernelIndex = "separation_kernel_index"
	KeyFillHolesKernelIndex  = "fill_holes_kernel_index"
	KeyMinArea               = "min_area"
	KeyThumbnailDir          = "thumbnail_dir"
	KeyOutputDir             = "output_dir"
	KeyLogLevel              = "log_level"
	KeyConsoleLog            = "console_log"
	KeyPruneStale            = "prune_stale"
	KeyOCR                   = "ocr"
	KeyOCRLanguage           = "ocr_language"
	KeyOCRRaw                = "ocr_raw"
)

// Config holds the resolved settings for one invocation.
type Config struct {
	Params pipeline.Params

	ThumbnailDir string // Where component thumbnails are written
	OutputDir    string // Where annotated/composite images and reports go
	LogLevel     string
	ConsoleLog   bool // Human-readable log output instead of JSON
	PruneStale   bool // Delete thumbnails left over from larger earlier runs
	OCR          bool // Read component markings with Tesseract
	OCRLanguage  string
	OCRRaw       bool // Read markings without the part-number whitelist and binarization
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Params:       pipeline.DefaultParams(),
		ThumbnailDir: component.DefaultThumbnailDir,
		OutputDir:    "out",
		LogLevel:     logging.DefaultLevel,
		ConsoleLog:   true,
		OCRLanguage:  "eng",
	}
}

// Load resolves settings in order: defaults, the preferences file at
// prefsPath, then envFile and the process environment. Process environment
// variables win over values in envFile. Missing files are skipped. The
// loaded preferences are returned so the caller can save changes back.
func Load(prefsPath, envFile string) (Config, *Prefs, error) {
	cfg := Default()

	prefs, err := LoadPrefs(prefsPath)
	if err != nil {
		return cfg, prefs, fmt.Errorf("load preferences %s: %w", prefsPath, err)
	}
	cfg.applyPrefs(prefs)

	lookup, err := envLookup(envFile)
	if err != nil {
		return cfg, prefs, err
	}
	cfg.applyEnv(lookup)

	return cfg, prefs, cfg.Validate()
}

// Validate checks the parameters and output directories.
func (c Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ThumbnailDir) == "" {
		return errors.New("thumbnail directory must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory must not be empty")
	}
	return nil
}

// SaveTo stores the settings in prefs and writes the file.
func (c Config) SaveTo(prefs *Prefs) error {
	prefs.SetInt(KeyBlurKernelIndex, c.Params.BlurKernelIndex)
	prefs.SetInt(KeySigmaIndex, c.Params.SigmaIndex)
	prefs.SetInt(KeyClaheClipIndex, c.Params.ClaheClipIndex)
	prefs.SetInt(KeySeparationKernelIndex, c.Params.SeparationKernelIndex)
	prefs.SetInt(KeyFillHolesKernelIndex, c.Params.FillHolesKernelIndex)
	prefs.SetInt(KeyMinArea, c.Params.MinArea)
	prefs.SetString(KeyThumbnailDir, c.ThumbnailDir)
	prefs.SetString(KeyOutputDir, c.OutputDir)
	prefs.SetString(KeyLogLevel, c.LogLevel)
	prefs.SetBool(KeyConsoleLog, c.ConsoleLog)
	prefs.SetBool(KeyPruneStale, c.PruneStale)
	prefs.SetBool(KeyOCR, c.OCR)
	prefs.SetString(KeyOCRLanguage, c.OCRLanguage)
	prefs.SetBool(KeyOCRRaw, c.OCRRaw)
	return prefs.Save()
}

func (c *Config) applyPrefs(p *Prefs) {
	c.Params.BlurKernelIndex = p.Int(KeyBlurKernelIndex, c.Params.BlurKernelIndex)
	c.Params.SigmaIndex = p.Int(KeySigmaIndex, c.Params.SigmaIndex)
	c.Params.ClaheClipIndex = p.Int(KeyClaheClipIndex, c.Params.ClaheClipIndex)
	c.Params.SeparationKernelIndex = p.Int(KeySeparationKernelIndex, c.Params.SeparationKernelIndex)
	c.Params.FillHolesKernelIndex = p.Int(KeyFillHolesKernelIndex, c.Params.FillHolesKernelIndex)
	c.Params.MinArea = p.Int(KeyMinArea, c.Params.MinArea)
	c.ThumbnailDir = p.String(KeyThumbnailDir, c.ThumbnailDir)
	c.OutputDir = p.String(KeyOutputDir, c.OutputDir)
	c.LogLevel = p.String(KeyLogLevel, c.LogLevel)
	c.ConsoleLog = p.Bool(KeyConsoleLog, c.ConsoleLog)
	c.PruneStale = p.Bool(KeyPruneStale, c.PruneStale)
	c.OCR = p.Bool(KeyOCR, c.OCR)
	c.OCRLanguage = p.String(KeyOCRLanguage, c.OCRLanguage)
	c.OCRRaw = p.Bool(KeyOCRRaw, c.OCRRaw)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	c.Params.BlurKernelIndex = getEnvInt(lookup, KeyBlurKernelIndex, c.Params.BlurKernelIndex)
	c.Params.SigmaIndex = getEnvInt(lookup, KeySigmaIndex, c.Params.SigmaIndex)
	c.Params.ClaheClipIndex = getEnvInt(lookup, KeyClaheClipIndex, c.Params.ClaheClipIndex)
	c.Params.SeparationKernelIndex = getEnvInt(lookup, KeySeparationKernelIndex, c.Params.SeparationKernelIndex)
	c.Params.FillHolesKernelIndex = getEnvInt(lookup, KeyFillHolesKernelIndex, c.Params.FillHolesKernelIndex)
	c.Params.MinArea = getEnvInt(lookup, KeyMinArea, c.Params.MinArea)
	c.ThumbnailDir = getEnv(lookup, KeyThumbnailDir, c.ThumbnailDir)
	c.OutputDir = getEnv(lookup, KeyOutputDir, c.OutputDir)
	c.LogLevel = getEnv(lookup, KeyLogLevel, c.LogLevel)
	c.ConsoleLog = getEnvBool(lookup, KeyConsoleLog, c.ConsoleLog)
	c.PruneStale = getEnvBool(lookup, KeyPruneStale, c.PruneStale)
	c.OCR = getEnvBool(lookup, KeyOCR, c.OCR)
	c.OCRLanguage = getEnv(lookup, KeyOCRLanguage, c.OCRLanguage)
	c.OCRRaw = getEnvBool(lookup, KeyOCRRaw, c.OCRRaw)
}

// envLookup returns a lookup over the process environment backed by the
// values in envFile.
func envLookup(envFile string) (func(string) (string, bool), error) {
	fileValues := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	}, nil
}

// EnvName returns the environment variable name for a key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

func getEnv(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(EnvName(key)); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(lookup func(string) (string, bool), key string, fallback int) int {
	if v, ok := lookup(EnvName(key)); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(lookup func(string) (string, bool), key string, fallback bool) bool {
	if v, ok := lookup(EnvName(key)); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
