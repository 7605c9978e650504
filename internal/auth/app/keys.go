package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/hearth/pkg/cryptox"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
)

// InitCodec loads the signing key and builds the token codec.
//
// The key is read once at startup. There is no rotation: replacing the key
// invalidates every outstanding access credential at once.
func InitCodec(cfg Config, logger *slog.Logger) (*jwtx.Codec, error) {
	material := cfg.SigningKey
	source := "env"
	if material == "" {
		raw, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read signing key file: %w", err)
		}
		material = string(raw)
		source = "file"
	}

	key, err := cryptox.DecodeKey(material)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}

	codec, err := jwtx.NewCodec(jwtx.CodecOptions{
		Key:        key,
		KID:        cryptox.FingerprintToken(string(key))[:8],
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize token codec: %w", err)
	}

	logger.Info("signing key loaded",
		"source", source,
		"issuer", cfg.Issuer,
		"access_ttl", codec.AccessTTL(),
		"refresh_ttl", codec.RefreshTTL(),
	)
	return codec, nil
}
