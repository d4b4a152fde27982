package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

const maxSignatureBytes = 1 << 20

// decodeSignature accepts a data URL or bare base64 payload of a PNG or JPEG image.
func decodeSignature(field, raw string) ([]byte, error) {
	payload := strings.TrimSpace(raw)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, domain.FieldErrors{{Field: field, Message: "must be a base64 data URL"}}.Err("decode signature")
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.FieldErrors{{Field: field, Message: "is not valid base64"}}.Err("decode signature")
	}
	if len(data) == 0 {
		return nil, domain.FieldErrors{{Field: field, Message: "is empty"}}.Err("decode signature")
	}
	if len(data) > maxSignatureBytes {
		return nil, domain.FieldErrors{{Field: field, Message: fmt.Sprintf("exceeds %d bytes", maxSignatureBytes)}}.Err("decode signature")
	}
	switch http.DetectContentType(data) {
	case "image/png", "image/jpeg":
	default:
		return nil, domain.FieldErrors{{Field: field, Message: "must be a PNG or JPEG image"}}.Err("decode signature")
	}
	return data, nil
}

func storeSignature(ctx context.Context, storage ports.ObjectStorage, key string, data []byte) error {
	if err := storage.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save signature %s: %w", key, err)
	}
	return nil
}
