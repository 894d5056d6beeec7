package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/prompts"
)

// ImageSink decides where a generated image lives. It receives the
// provider's temporary URL and returns the reference to persist.
type ImageSink interface {
	Store(ctx context.Context, sourceURL, name string) (string, error)
}

// RemoteSink keeps the provider URL as is.
type RemoteSink struct{}

func (RemoteSink) Store(_ context.Context, sourceURL, _ string) (string, error) {
	return sourceURL, nil
}

// LocalSink downloads images into a directory served under a public base URL.
type LocalSink struct {
	dir     string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

const maxImageBytes = 20 << 20

func NewLocalSink(dir, baseURL string, logger *slog.Logger) *LocalSink {
	return &LocalSink{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: time.Minute},
		logger:  logger,
	}
}

func (s *LocalSink) Store(ctx context.Context, sourceURL, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}
	filename := fmt.Sprintf("%s-%s.png", slug(name), uuid.New().String())
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	s.logger.Debug("Image saved", "path", path)
	return s.baseURL + "/" + filename, nil
}

func slug(name string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, strings.TrimSpace(name))
	s = strings.Trim(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	if s == "" {
		return "image"
	}
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "-")
	}
	return s
}

// Illustrator generates item and character art and stores it in a sink.
type Illustrator struct {
	images ImageGenerator
	sink   ImageSink
}

func NewIllustrator(images ImageGenerator, sink ImageSink) *Illustrator {
	if sink == nil {
		sink = RemoteSink{}
	}
	return &Illustrator{images: images, sink: sink}
}

// ItemImage draws an item and returns the stored reference.
func (il *Illustrator) ItemImage(ctx context.Context, name string, category game.ItemCategory) (string, error) {
	return il.draw(ctx, prompts.ItemImagePrompt(name, category), name)
}

// Avatar draws a character portrait and returns the stored reference.
func (il *Illustrator) Avatar(ctx context.Context, c *game.Character) (string, error) {
	return il.draw(ctx, prompts.AvatarPrompt(c.Race, c.ClassName), c.Name)
}

func (il *Illustrator) draw(ctx context.Context, prompt, name string) (string, error) {
	url, err := il.images.GenerateImage(ctx, ImageRequest{Prompt: prompt, Tier: ImageTierHigh})
	if err != nil {
		return "", err
	}
	return il.sink.Store(ctx, url, name)
}
