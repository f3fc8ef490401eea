package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WalletGateway implements Gateway for a wallet-style provider. It keeps an
// in-process transaction store and deduplicates on the idempotency key, the
// same guarantee a real wallet backend gives, which makes it the provider of
// choice for tests and load environments.
//
// Behavior is steered by the payment method reference:
//
//	"wallet:ok"            charge succeeds
//	"wallet:declined"      charge declined (insufficient_funds)
//	"wallet:challenge"     charge requires a step-up challenge
//	"wallet:timeout-once"  first attempt per idempotency key times out
type WalletGateway struct {
	delay time.Duration

	mu         sync.Mutex
	charges    map[string]*ChargeResult // idempotency key -> result
	refunds    map[string]*RefundResult // idempotency key -> result
	challenges map[string]*ChargeRequest
	txns       map[string]*ChargeRequest // gateway txn id -> original charge
	attempts   map[string]int            // idempotency key -> call count
	refundFail bool
}

// NewWalletGateway creates the wallet gateway.
func NewWalletGateway(delay time.Duration) *WalletGateway {
	return &WalletGateway{
		delay:      delay,
		charges:    make(map[string]*ChargeResult),
		refunds:    make(map[string]*RefundResult),
		challenges: make(map[string]*ChargeRequest),
		txns:       make(map[string]*ChargeRequest),
		attempts:   make(map[string]int),
	}
}

// Name returns the provider identifier.
func (g *WalletGateway) Name() string {
	return "wallet"
}

// FailRefunds toggles refund failure for testing partial-failure paths.
func (g *WalletGateway) FailRefunds(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundFail = fail
}

// ChargeCount returns how many distinct transactions were created.
func (g *WalletGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.txns)
}

// CreateCharge deduplicates on the idempotency key: a retried call returns
// the original result without creating a second transaction.
func (g *WalletGateway) CreateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req == nil {
		return nil, Terminal("invalid_request", fmt.Errorf("charge request is required"))
	}
	if req.IdempotencyKey == "" {
		return nil, Terminal("invalid_request", fmt.Errorf("idempotency key is required"))
	}

	if err := g.sleep(ctx); err != nil {
		return nil, Transient("gateway_timeout", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if prior, ok := g.charges[req.IdempotencyKey]; ok {
		return prior, nil
	}

	g.attempts[req.IdempotencyKey]++

	switch {
	case strings.HasSuffix(req.MethodRef, "timeout-once") && g.attempts[req.IdempotencyKey] == 1:
		return nil, Transient("gateway_timeout", context.DeadlineExceeded)

	case strings.HasSuffix(req.MethodRef, "declined"):
		result := &ChargeResult{Status: ChargeStatusDeclined, DeclineCode: "insufficient_funds"}
		g.charges[req.IdempotencyKey] = result
		return result, nil

	case strings.HasSuffix(req.MethodRef, "challenge"):
		ref := "wch_" + uuid.New().String()[:8]
		result := &ChargeResult{Status: ChargeStatusRequiresChallenge, ChallengeRef: ref}
		g.charges[req.IdempotencyKey] = result
		g.challenges[ref] = req
		return result, nil

	default:
		txnID := "wtx_" + uuid.New().String()[:8]
		result := &ChargeResult{Status: ChargeStatusSucceeded, GatewayTxnID: txnID}
		g.charges[req.IdempotencyKey] = result
		g.txns[txnID] = req
		return result, nil
	}
}

// CompleteChallenge resolves a pending step-up challenge as succeeded.
func (g *WalletGateway) CompleteChallenge(ctx context.Context, challengeRef string) (*ChargeResult, error) {
	if err := g.sleep(ctx); err != nil {
		return nil, Transient("gateway_timeout", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	req, ok := g.challenges[challengeRef]
	if !ok {
		return nil, Terminal("challenge_not_found", fmt.Errorf("unknown challenge %s", challengeRef))
	}
	delete(g.challenges, challengeRef)

	txnID := "wtx_" + uuid.New().String()[:8]
	result := &ChargeResult{Status: ChargeStatusSucceeded, GatewayTxnID: txnID}
	g.charges[req.IdempotencyKey] = result
	g.txns[txnID] = req
	return result, nil
}

// CreateRefund deduplicates on the idempotency key and verifies the original
// transaction exists.
func (g *WalletGateway) CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if req == nil || req.GatewayTxnID == "" {
		return nil, Terminal("invalid_request", fmt.Errorf("gateway transaction id is required"))
	}

	if err := g.sleep(ctx); err != nil {
		return nil, Transient("gateway_timeout", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if prior, ok := g.refunds[req.IdempotencyKey]; ok {
		return prior, nil
	}

	if g.refundFail {
		return nil, Transient("gateway_timeout", context.DeadlineExceeded)
	}

	if _, ok := g.txns[req.GatewayTxnID]; !ok {
		return nil, Terminal("transaction_not_found", fmt.Errorf("unknown transaction %s", req.GatewayTxnID))
	}

	result := &RefundResult{
		Status:      RefundStatusSucceeded,
		RefundTxnID: "wrf_" + uuid.New().String()[:8],
	}
	g.refunds[req.IdempotencyKey] = result
	return result, nil
}

func (g *WalletGateway) sleep(ctx context.Context) error {
	if g.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.delay):
		return nil
	}
}

var _ Gateway = (*WalletGateway)(nil)
