package pickup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ms-preorder/internal/models"

	"github.com/skip2/go-qrcode"
)

// Pass is what the counter staff scan at pickup.
type Pass struct {
	OrderID string `json:"order_id"`
	Day     string `json:"day"`
	OrderNo int    `json:"order_no"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// Pixel bounds of a rendered pass.
const (
	MinSize     = 64
	MaxSize     = 1024
	DefaultSize = 256
)

// GenerateQR returns a PNG whose payload is the sealed pickup pass. Sizes
// outside MinSize..MaxSize render at DefaultSize.
func (q *QRGenerator) GenerateQR(order models.Order, size int) ([]byte, error) {
	if size < MinSize || size > MaxSize {
		size = DefaultSize
	}
	token, err := q.Seal(Pass{OrderID: order.ID, Day: order.Day, OrderNo: order.OrderNo})
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}

// Seal encrypts and authenticates a pass into a URL-safe token.
func (q *QRGenerator) Seal(p Pass) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	gcm, err := q.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Tampered or foreign tokens fail.
func (q *QRGenerator) Open(token string) (*Pass, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode pickup token: %w", err)
	}

	gcm, err := q.aead()
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("pickup token too short")
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open pickup token: %w", err)
	}

	var p Pass
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *QRGenerator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
