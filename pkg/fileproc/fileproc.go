// Package fileproc is the file layer around the codec: whole-file encryption and
// decryption with atomic writes, and batch encryption into a fresh output
// directory together with the key file.
package fileproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"axine-go/pkg/codec"
	"axine-go/pkg/key"
	"axine-go/pkg/log"
	"axine-go/pkg/transform"

	"github.com/dustin/go-humanize"
)

const (
	DefaultExtension = ".axine"
	batchDirPrefix   = "Encrypted_"
	batchDirLayout   = "20060102_150405"
)

type Options struct {
	Codec         []codec.Option
	Compress      bool
	CompressLevel string
	Extension     string
	KeyFileName   string
}

// Processor encrypts and decrypts files under one key.
type Processor struct {
	key      key.Key
	pipeline *transform.PayloadProcessor
	ext      string
	keyFile  string
	now      func() time.Time
}

// Result describes one processed file.
type Result struct {
	Src      string
	Dst      string
	InBytes  int
	OutBytes int
	Elapsed  time.Duration
}

// NewProcessor builds the pipeline: optional zstd compression, then the cipher.
func NewProcessor(k key.Key, opts Options) (*Processor, error) {
	stages := []transform.Transform{}
	if opts.Compress {
		level, err := transform.LevelFromString(opts.CompressLevel)
		if err != nil {
			return nil, err
		}
		z, err := transform.NewZstdTransform(level)
		if err != nil {
			return nil, err
		}
		stages = append(stages, z)
	}
	stages = append(stages, transform.NewFeistelTransform(codec.New(k, opts.Codec...)))
	pipeline, err := transform.NewPayloadProcessor(stages)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		key:      k,
		pipeline: pipeline,
		ext:      opts.Extension,
		keyFile:  opts.KeyFileName,
		now:      time.Now,
	}
	if p.ext == "" {
		p.ext = DefaultExtension
	}
	if p.keyFile == "" {
		p.keyFile = key.DefaultFileName
	}
	return p, nil
}

// Key returns the processor's key.
func (p *Processor) Key() key.Key { return p.key }

// Extension returns the suffix given to encrypted files.
func (p *Processor) Extension() string { return p.ext }

// EncryptFile encrypts src into dst.
func (p *Processor) EncryptFile(src, dst string) (Result, error) {
	return p.process(src, dst, "encrypt", p.pipeline.Seal)
}

// DecryptFile decrypts src into dst. Nothing is written when the ciphertext or
// its padding is invalid.
func (p *Processor) DecryptFile(src, dst string) (Result, error) {
	return p.process(src, dst, "decrypt", p.pipeline.Open)
}

func (p *Processor) process(src, dst, op string, fn func([]byte) ([]byte, error)) (Result, error) {
	start := time.Now()
	res := Result{Src: src, Dst: dst}

	data, err := os.ReadFile(src)
	if err != nil {
		return res, ioErr("read", src, err)
	}
	res.InBytes = len(data)

	out, err := fn(data)
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", op, src, err)
	}
	if err := WriteFileAtomic(dst, out, 0o644); err != nil {
		return res, err
	}
	res.OutBytes = len(out)
	res.Elapsed = time.Since(start)

	log.Info().
		Str("op", op).
		Str("src", src).
		Str("dst", dst).
		Int("in_bytes", res.InBytes).
		Int("out_bytes", res.OutBytes).
		Dur("elapsed", res.Elapsed).
		Str("key_fp", p.key.Fingerprint()).
		Msgf("%sed %s (%s)", op, filepath.Base(src), humanize.Bytes(uint64(res.InBytes)))
	return res, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never see a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return ioErr("create", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return ioErr("write", path, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return ioErr("chmod", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return ioErr("sync", path, err)
	}
	if err = tmp.Close(); err != nil {
		return ioErr("close", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return ioErr("rename", path, err)
	}
	return nil
}

// EncryptedName is the output name for src inside dir.
func (p *Processor) EncryptedName(dir, src string) string {
	return filepath.Join(dir, filepath.Base(src)+p.ext)
}

// DecryptedName strips the last extension from the file name:
// "report.pdf.axine" becomes "report.pdf".
func DecryptedName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// UniqueDir creates base/Encrypted_YYYYMMDD_hhmmss, adding _1, _2, ... when a
// directory of that name already exists.
func UniqueDir(base string, now time.Time) (string, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", ioErr("mkdir", base, err)
	}
	name := filepath.Join(base, batchDirPrefix+now.Format(batchDirLayout))
	candidate := name
	for i := 1; ; i++ {
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", ioErr("mkdir", candidate, err)
		}
		candidate = name + "_" + strconv.Itoa(i)
	}
}

// BatchResult lists what EncryptBatch produced.
type BatchResult struct {
	Dir     string
	KeyFile string
	Files   []Result
}

// EncryptBatch creates a fresh output directory under baseDir, stores the key
// file in it and encrypts every file as <name><ext>. It stops at the first
// failure; Files then holds the files finished before it.
func (p *Processor) EncryptBatch(files []string, baseDir string) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files selected")
	}
	dir, err := UniqueDir(baseDir, p.now())
	if err != nil {
		return nil, err
	}
	res := &BatchResult{Dir: dir, KeyFile: filepath.Join(dir, p.keyFile)}
	if err := WriteFileAtomic(res.KeyFile, []byte(p.key.String()), 0o600); err != nil {
		return res, err
	}

	for _, f := range files {
		r, err := p.EncryptFile(f, p.EncryptedName(dir, f))
		if err != nil {
			log.Error().Err(err).Str("src", f).Str("dir", dir).Msg("batch encryption stopped")
			return res, fmt.Errorf("error encrypting %s: %w", filepath.Base(f), err)
		}
		res.Files = append(res.Files, r)
	}
	log.Info().Str("dir", dir).Int("files", len(res.Files)).Str("key_fp", p.key.Fingerprint()).Msg("batch encrypted")
	return res, nil
}
