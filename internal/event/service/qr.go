package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/skip2/go-qrcode"

	"edu-crm/internal/models"
)

// PassGenerator produces the QR entry pass embedded in a confirmed
// registration. The payload is sealed with an authenticated cipher so a
// scanned pass can only be read back by this service.
type PassGenerator struct {
	aead cipher.AEAD
}

func NewPassGenerator(secret string) *PassGenerator {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(fmt.Sprintf("pass cipher init: %v", err))
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(fmt.Sprintf("pass cipher init: %v", err))
	}
	return &PassGenerator{aead: aead}
}

type passPayload struct {
	Code          string `json:"code"`
	EventID       string `json:"event_id"`
	AttendeeEmail string `json:"attendee_email"`
}

// Seal encodes and encrypts the registration payload. The returned string
// is what a scanner reads back out of the QR image.
func (g *PassGenerator) Seal(reg models.EventRegistration) (string, error) {
	plain, err := json.Marshal(passPayload{
		Code:          reg.Code,
		EventID:       reg.EventID,
		AttendeeEmail: reg.AttendeeEmail,
	})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, plain, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Generate renders the sealed registration payload as a PNG QR code.
func (g *PassGenerator) Generate(reg models.EventRegistration) ([]byte, error) {
	pass, err := g.Seal(reg)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(pass, qrcode.Medium, 256)
}

// Open reverses Generate's sealing for a scanned pass string.
func (g *PassGenerator) Open(pass string) (string, string, error) {
	sealed, err := base64.URLEncoding.DecodeString(pass)
	if err != nil {
		return "", "", fmt.Errorf("decode pass: %w", err)
	}
	if len(sealed) < g.aead.NonceSize() {
		return "", "", fmt.Errorf("pass too short")
	}
	nonce, body := sealed[:g.aead.NonceSize()], sealed[g.aead.NonceSize():]

	plain, err := g.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", "", fmt.Errorf("open pass: %w", err)
	}

	var payload passPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return "", "", fmt.Errorf("decode pass payload: %w", err)
	}
	return payload.Code, payload.EventID, nil
}
