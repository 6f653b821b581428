package remote

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SoftCard describes one filesystem-backed card found under the softcard
// root. A card is a subdirectory holding key and certificate material.
type SoftCard struct {
	// Name is the card directory name, used as the card identifier.
	Name string

	// Path is the absolute card directory.
	Path string

	// Valid reports whether the directory holds at least one certificate.
	Valid bool

	// Certificates lists the certificate files found in the card.
	Certificates []string

	// Subject and Issuer are best-effort metadata scraped from text headers
	// in the certificate files or accompanying text files; empty when
	// unavailable.
	Subject string
	Issuer  string
}

var certificateExtensions = map[string]bool{
	".crt": true,
	".cer": true,
	".pem": true,
}

// ListSoftCards scans the softcard root for card directories. The scan reads
// the filesystem fresh on every call; results are never cached, so cards
// added or removed between calls are always reflected.
//
// A missing root is not an error: it reports zero cards.
func ListSoftCards(root string) ([]SoftCard, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan softcard root: %w", err)
	}

	var cards []SoftCard
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		card, err := readSoftCard(filepath.Join(root, entry.Name()))
		if err != nil {
			// An unreadable card directory is skipped, not fatal.
			continue
		}
		cards = append(cards, *card)
	}
	return cards, nil
}

func readSoftCard(dir string) (*SoftCard, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	card := &SoftCard{
		Name: filepath.Base(dir),
		Path: dir,
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if certificateExtensions[strings.ToLower(filepath.Ext(name))] {
			card.Certificates = append(card.Certificates, name)
		}
	}
	card.Valid = len(card.Certificates) > 0

	card.Subject, card.Issuer = scrapeCardMetadata(dir, card.Certificates)
	return card, nil
}

// scrapeCardMetadata looks for "Subject:" and "Issuer:" label lines in the
// card's certificate files (openssl-style text preamble before the armor)
// and in accompanying text files. Purely best effort, no certificate parse.
func scrapeCardMetadata(dir string, certFiles []string) (subject, issuer string) {
	names := append(append([]string{}, certFiles...), "card.txt", "info.txt", "metadata.txt")
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if v, ok := strings.CutPrefix(line, "Subject:"); ok && subject == "" {
				subject = strings.TrimSpace(v)
			}
			if v, ok := strings.CutPrefix(line, "Issuer:"); ok && issuer == "" {
				issuer = strings.TrimSpace(v)
			}
		}
		f.Close()
		if subject != "" || issuer != "" {
			return subject, issuer
		}
	}
	return subject, issuer
}
