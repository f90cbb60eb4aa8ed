package goGuard

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RecordAbuse counts one abusive event from a source address. Crossing the
// configured threshold blocks the address for the flat block duration.
// Address thresholds run looser than account thresholds: one address behind
// NAT may serve many legitimate users.
func (g *Guard) RecordAbuse(ctx context.Context, address, reason string) (BlockStatus, error) {
	if g == nil {
		return BlockStatus{}, ErrGuardNotReady
	}
	if address == "" {
		return BlockStatus{}, fmt.Errorf("%w: address required", ErrInvalidInput)
	}

	status, err := g.ipBlocks.RecordAbuse(ctx, address, reason)
	if err != nil {
		return BlockStatus{}, g.storeErr("ipblock_abuse", err)
	}

	if status.JustBlocked {
		g.metricInc(MetricIPBlocks)
		g.emitEvent(ctx, EventIPBlocked, false, "", address, ErrIPBlocked, map[string]string{
			"reason": reason,
			"events": strconv.FormatInt(status.Events, 10),
		})
	}

	return BlockStatus{
		Blocked: status.Blocked,
		Until:   status.Until,
		Reason:  status.Reason,
		Events:  status.Events,
	}, nil
}

// IsBlocked reports the address's block state. Callers gate request
// handling on it; a backend failure reads as an error, never as "clear".
func (g *Guard) IsBlocked(ctx context.Context, address string) (BlockStatus, error) {
	if g == nil {
		return BlockStatus{}, ErrGuardNotReady
	}
	if address == "" {
		return BlockStatus{}, fmt.Errorf("%w: address required", ErrInvalidInput)
	}

	status, err := g.ipBlocks.Status(ctx, address)
	if err != nil {
		return BlockStatus{}, g.storeErr("ipblock_status", err)
	}

	if status.Blocked {
		g.metricInc(MetricIPDenied)
	}

	return BlockStatus{
		Blocked: status.Blocked,
		Until:   status.Until,
		Reason:  status.Reason,
		Events:  status.Events,
	}, nil
}

// BlockIP places or extends a block by hand. Zero duration uses the
// configured default. Manual blocks overwrite automatic ones.
func (g *Guard) BlockIP(ctx context.Context, address string, duration time.Duration, reason string) (BlockStatus, error) {
	if g == nil {
		return BlockStatus{}, ErrGuardNotReady
	}
	if address == "" {
		return BlockStatus{}, fmt.Errorf("%w: address required", ErrInvalidInput)
	}
	if duration < 0 {
		return BlockStatus{}, fmt.Errorf("%w: negative duration", ErrInvalidInput)
	}

	status, err := g.ipBlocks.Block(ctx, address, duration, reason)
	if err != nil {
		return BlockStatus{}, g.storeErr("ipblock_block", err)
	}

	g.metricInc(MetricIPBlocks)
	g.emitEvent(ctx, EventIPBlocked, false, "", address, ErrIPBlocked, map[string]string{
		"reason": reason,
		"manual": "true",
	})

	return BlockStatus{
		Blocked: status.Blocked,
		Until:   status.Until,
		Reason:  status.Reason,
	}, nil
}

// UnblockIP lifts a block and clears the address's abuse counter.
func (g *Guard) UnblockIP(ctx context.Context, address string) error {
	if g == nil {
		return ErrGuardNotReady
	}
	if address == "" {
		return fmt.Errorf("%w: address required", ErrInvalidInput)
	}

	if err := g.ipBlocks.Unblock(ctx, address); err != nil {
		return g.storeErr("ipblock_unblock", err)
	}

	g.metricInc(MetricIPUnblocks)
	g.emitEvent(ctx, EventIPUnblocked, true, "", address, nil, nil)

	return nil
}

// BlockedAddresses lists currently blocked addresses, up to limit (0 means
// no cap). SCAN-based; intended for dashboards, not hot paths.
func (g *Guard) BlockedAddresses(ctx context.Context, limit int) ([]BlockedAddress, error) {
	if g == nil {
		return nil, ErrGuardNotReady
	}

	blocked, err := g.ipBlocks.ListBlocked(ctx, limit)
	if err != nil {
		return nil, g.storeErr("ipblock_list", err)
	}

	return blocked, nil
}
