// Package password реализует хеширование паролей с индивидуальной солью.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSaltLength — длина соли по умолчанию в байтах.
const DefaultSaltLength = 64

// Hashed хранит пару «дайджест + соль» в том виде, в каком она лежит на
// счёте. Обе строки непрозрачны для вызывающего кода; пустая пара — сентинел
// «пароль отсутствует», который никогда не совпадает с настоящим хешем.
type Hashed struct {
	Digest string
	Salt   string
}

// Hasher определяет контракт хеширования паролей.
type Hasher interface {
	Hash(password string) (Hashed, error)
	Verify(password string, stored Hashed) bool
}

var (
	_ Hasher = (*SHA512Hasher)(nil)
	_ Hasher = (*BcryptHasher)(nil)
)

// SHA512Hasher реализует Hasher как SHA-512 от конкатенации пароля и
// случайной соли; дайджест и соль кодируются в base64.
type SHA512Hasher struct {
	saltLen int
}

// NewSHA512Hasher возвращает хешер с указанной длиной соли в байтах.
func NewSHA512Hasher(saltLen int) *SHA512Hasher {
	if saltLen <= 0 {
		saltLen = DefaultSaltLength
	}
	return &SHA512Hasher{saltLen: saltLen}
}

// Hash вычисляет дайджест пароля со свежей случайной солью. Пустой пароль
// даёт пустую пару: она не равна ни одному сохранённому хешу, поэтому
// аутентификация с пустым паролем всегда завершается неудачей.
func (h *SHA512Hasher) Hash(password string) (Hashed, error) {
	if password == "" {
		return Hashed{}, nil
	}

	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Hashed{}, fmt.Errorf("generate salt: %w", err)
	}

	return Hashed{
		Digest: digest(password, salt),
		Salt:   base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Verify пересчитывает дайджест с сохранённой солью и сравнивает его с
// сохранённым в постоянное время. Сравниваются только дайджесты.
func (h *SHA512Hasher) Verify(password string, stored Hashed) bool {
	if password == "" || stored.Digest == "" {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return false
	}

	candidate := digest(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored.Digest)) == 1
}

func digest(password string, salt []byte) string {
	sum := sha512.Sum512(append([]byte(password), salt...))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// BcryptHasher реализует Hasher поверх bcrypt: соль встроена в сам хеш,
// поэтому поле Salt остаётся пустым.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher возвращает bcrypt-хешер с указанной стоимостью.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash вычисляет bcrypt-хеш пароля. Пустой пароль даёт пустую пару-сентинел.
func (h *BcryptHasher) Hash(password string) (Hashed, error) {
	if password == "" {
		return Hashed{}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return Hashed{}, fmt.Errorf("bcrypt hash: %w", err)
	}

	return Hashed{Digest: string(hash)}, nil
}

// Verify проверяет пароль по сохранённому bcrypt-хешу.
func (h *BcryptHasher) Verify(password string, stored Hashed) bool {
	if password == "" || stored.Digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored.Digest), []byte(password)) == nil
}
