package qrcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	// Resolve looks a table up by the token passed to /start.
	Resolve(ctx context.Context, token string) (*QRCode, error)
	// Rotate replaces code's token with a new one and re-renders its image.
	// It fails with ErrQRCodeNotFound when the stored token is no longer code.UUID,
	// so a token is consumed by at most one caller.
	Rotate(ctx context.Context, code QRCode) (*QRCode, error)
	// Provision creates a table with a fresh token and renders its image.
	Provision(ctx context.Context) (*QRCode, error)
	List(ctx context.Context) ([]QRCode, error)
	ImagePath(id int64) string
	DeepLink(token uuid.UUID) string
}

type Options struct {
	BotUsername string
	Dir         string
}

type service struct {
	repo     Repository
	renderer Renderer
	opts     Options
	newUUID  func() (uuid.UUID, error)
}

func NewService(repo Repository, renderer Renderer, opts Options) Service {
	return &service{
		repo:     repo,
		renderer: renderer,
		opts:     opts,
		newUUID:  uuid.NewV4,
	}
}

func (s *service) Resolve(ctx context.Context, token string) (*QRCode, error) {
	parsed, err := uuid.FromString(token)
	if err != nil {
		log.Warn().Str("token", token).Msg("service: malformed qrcode token")
		return nil, ErrQRCodeNotFound
	}

	code, err := s.repo.FindByUUID(ctx, parsed)
	if err != nil {
		if errors.Is(err, ErrQRCodeNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve qrcode: %w", err)
	}

	return code, nil
}

// Rotate renders the image before touching the database so a render failure
// leaves the old token valid. The file is written only after the new token is
// stored, which keeps the link in the image equal to the persisted token.
func (s *service) Rotate(ctx context.Context, code QRCode) (*QRCode, error) {
	id := code.ID
	token, err := s.newUUID()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate qrcode uuid: %w", err)
	}

	png, err := s.renderer.Render(s.DeepLink(token))
	if err != nil {
		return nil, fmt.Errorf("service: failed to render qrcode %d: %w", id, err)
	}

	if err := s.repo.UpdateUUID(ctx, id, code.UUID, token); err != nil {
		if errors.Is(err, ErrQRCodeNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("service: failed to rotate qrcode %d: %w", id, err)
	}

	if err := s.writeImage(id, png); err != nil {
		log.Error().Err(err).Int64("qrcode_id", id).Msg("service: qrcode rotated but image was not written")
		return nil, err
	}

	log.Info().Int64("qrcode_id", id).Stringer("uuid", token).Msg("service: qrcode rotated")
	return &QRCode{ID: id, UUID: token}, nil
}

func (s *service) Provision(ctx context.Context) (*QRCode, error) {
	token, err := s.newUUID()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate qrcode uuid: %w", err)
	}

	code, err := s.repo.Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("service: failed to create qrcode: %w", err)
	}

	png, err := s.renderer.Render(s.DeepLink(code.UUID))
	if err != nil {
		return nil, fmt.Errorf("service: failed to render qrcode %d: %w", code.ID, err)
	}
	if err := s.writeImage(code.ID, png); err != nil {
		return nil, err
	}

	return code, nil
}

func (s *service) List(ctx context.Context) ([]QRCode, error) {
	codes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list qrcodes: %w", err)
	}
	return codes, nil
}

func (s *service) ImagePath(id int64) string {
	return filepath.Join(s.opts.Dir, strconv.FormatInt(id, 10)+".png")
}

func (s *service) DeepLink(token uuid.UUID) string {
	return DeepLink(s.opts.BotUsername, token)
}

// writeImage пишет во временный файл и переименовывает, чтобы веб-страница не отдала половину PNG.
func (s *service) writeImage(id int64, png []byte) error {
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("service: failed to create qrcode dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.opts.Dir, ".qrcode-*.png")
	if err != nil {
		return fmt.Errorf("service: failed to create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("service: failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("service: failed to close image: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("service: failed to chmod image: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.ImagePath(id)); err != nil {
		return fmt.Errorf("service: failed to store image: %w", err)
	}

	return nil
}
