package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidUploadToken = errors.New("invalid upload token")
	ErrUploadTokenExpired = errors.New("upload token expired")
)

// BuildUploadStringToSign constructs the canonical string signed for a direct upload grant.
// Format: PUT\n/{bucket}/{path}\n{owner}\n{expiresAt}
func BuildUploadStringToSign(bucket, path, ownerID string, expiresAt int64) string {
	return fmt.Sprintf("PUT\n/%s/%s\n%s\n%d", bucket, path, ownerID, expiresAt)
}

// ComputeHMACSHA256 computes HMAC-SHA256 signature and returns hex-encoded string.
func ComputeHMACSHA256(secretKey, message string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// SecureCompare performs constant-time string comparison.
// This MUST be used when comparing signatures.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SignUploadToken returns "{expiresAt}.{hex signature}".
func SignUploadToken(secretKey, bucket, path, ownerID string, expiresAt time.Time) string {
	exp := expiresAt.Unix()
	sig := ComputeHMACSHA256(secretKey, BuildUploadStringToSign(bucket, path, ownerID, exp))
	return strconv.FormatInt(exp, 10) + "." + sig
}

// VerifyUploadToken checks a token produced by SignUploadToken against the
// object it claims to authorize.
func VerifyUploadToken(secretKey, token, bucket, path, ownerID string, now time.Time) error {
	expRaw, sig, ok := strings.Cut(token, ".")
	if !ok || sig == "" {
		return ErrInvalidUploadToken
	}
	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return ErrInvalidUploadToken
	}

	expected := ComputeHMACSHA256(secretKey, BuildUploadStringToSign(bucket, path, ownerID, exp))
	if !SecureCompare(expected, sig) {
		return ErrInvalidUploadToken
	}
	if now.Unix() > exp {
		return ErrUploadTokenExpired
	}
	return nil
}
