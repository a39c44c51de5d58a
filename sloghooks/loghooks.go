package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/aicache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DecisionEvery   uint64
	IndexPruneEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	decisionCtr atomic.Uint64
	pruneCtr    atomic.Uint64
}

var _ aicache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Decision(opType string, elapsed time.Duration) {
	if h.l == nil || !sample(h.opts.DecisionEvery, &h.decisionCtr) {
		return
	}
	h.l.Debug("aicache.decision",
		"op_type", opType,
		"elapsed", elapsed)
}

func (h *Hooks) Eviction(policy string, entries int, bytes int64) {
	if h.l == nil {
		return
	}
	h.l.Info("aicache.eviction",
		"policy", policy,
		"entries", entries,
		"bytes", bytes)
}

func (h *Hooks) ExpiredSwept(entries int) {
	if h.l == nil || entries == 0 {
		return
	}
	h.l.Debug("aicache.expired_swept",
		"entries", entries)
}

func (h *Hooks) IndexPruned(key, reason string) {
	if h.l == nil || !sample(h.opts.IndexPruneEvery, &h.pruneCtr) {
		return
	}
	h.l.Debug("aicache.index_pruned",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) AuditDropped(n int) {
	if h.l == nil {
		return
	}
	h.l.Warn("aicache.audit_dropped",
		"count", n)
}

func (h *Hooks) AuditPersistError(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("aicache.audit_persist_error",
		"err", err)
}

func (h *Hooks) EmbeddingFault(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("aicache.embedding_fault",
		"err", err)
}

func (h *Hooks) StorageFault(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("aicache.storage_fault",
		"op", op,
		"err", err)
}

func (h *Hooks) StorageRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("aicache.storage_rejected",
		"key", h.redact(key))
}
