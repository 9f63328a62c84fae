package passthrough

import (
	"fmt"
	"log/slog"
	"slices"

	"m7s.live/player/pkg"
	"m7s.live/player/pkg/codec"
)

var SupportedMimes = []string{codec.MimeH264, codec.MimeH265, codec.MimeAAC, codec.MimeOpus}

type Factory struct {
	*slog.Logger
	Slots        int
	MaxInputSize int
}

func (f *Factory) CreateDecoder(mime string) (pkg.Decoder, error) {
	if !slices.Contains(SupportedMimes, mime) {
		return nil, fmt.Errorf("%s: %w", mime, pkg.ErrUnsupportedCodec)
	}
	return NewDecoder(f.Logger, mime, f.Slots, f.MaxInputSize), nil
}
