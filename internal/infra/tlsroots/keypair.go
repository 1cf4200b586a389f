package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay lets writers finish both files before a reload.
const DefaultReloadDelay = 300 * time.Millisecond

// Keypair holds a certificate that follows its files on disk.
type Keypair struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	delay    time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate
}

// LoadKeypair loads certFile and keyFile.
func LoadKeypair(certFile, keyFile string, logger *slog.Logger) (*Keypair, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kp := &Keypair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
		delay:    DefaultReloadDelay,
	}
	if err := kp.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return kp, nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (kp *Keypair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return kp.current(), nil
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (kp *Keypair) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return kp.current(), nil
}

func (kp *Keypair) current() *tls.Certificate {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.cert
}

func (kp *Keypair) reload() error {
	cert, err := tls.LoadX509KeyPair(kp.certFile, kp.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	kp.mu.Lock()
	kp.cert = &cert
	kp.mu.Unlock()
	return nil
}

// Watch reloads the keypair whenever either file changes, until ctx
// ends. A failed reload keeps the previous certificate.
func (kp *Keypair) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer fw.Close()

	dirs := map[string]bool{filepath.Dir(kp.certFile): true, filepath.Dir(kp.keyFile): true}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	files := map[string]bool{filepath.Clean(kp.certFile): true, filepath.Clean(kp.keyFile): true}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(kp.delay)
			} else {
				timer.Reset(kp.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := kp.reload(); err != nil {
				kp.logger.Error("certificate reload failed", "cert_file", kp.certFile, "error", err)
				continue
			}
			kp.logger.Info("certificate reloaded", "cert_file", kp.certFile)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			kp.logger.Error("certificate watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
