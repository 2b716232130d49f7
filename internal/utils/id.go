package utils

import (
	"crypto/sha256"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateNanoID(length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		panic(err)
	}
	return id
}

func GenerateNanoIDWithPrefix(prefix string, length int) string {
	if prefix == "" {
		return GenerateNanoID(length)
	}
	return prefix + "_" + GenerateNanoID(length)
}

// GenerateMessageID builds an RFC 5322 Message-ID for outgoing mail
func GenerateMessageID(domain, metadata string) string {
	timestamp := time.Now().UnixMicro()

	var hashComponent string
	if metadata != "" {
		hash := sha256.Sum256([]byte(metadata))
		hashComponent = fmt.Sprintf(".%x", hash[:4])
	}

	localPart := fmt.Sprintf("%d.%s%s", timestamp, GenerateNanoID(12), hashComponent)
	return fmt.Sprintf("<%s@%s>", localPart, domain)
}
