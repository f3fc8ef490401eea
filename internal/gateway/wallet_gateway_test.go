package gateway

import (
	"context"
	"testing"
)

func walletCharge(key, methodRef string) *ChargeRequest {
	return &ChargeRequest{
		BookingID:      "bk-1",
		Amount:         37908,
		Currency:       "USD",
		MethodRef:      methodRef,
		IdempotencyKey: key,
	}
}

func TestWalletGateway_ChargeDeduplicatesOnKey(t *testing.T) {
	ctx := context.Background()
	g := NewWalletGateway(0)

	first, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:ok"))
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	if first.Status != ChargeStatusSucceeded || first.GatewayTxnID == "" {
		t.Fatalf("result = %+v", first)
	}

	second, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:ok"))
	if err != nil {
		t.Fatalf("replay CreateCharge: %v", err)
	}
	if second.GatewayTxnID != first.GatewayTxnID {
		t.Errorf("replay created a new transaction: %s vs %s", second.GatewayTxnID, first.GatewayTxnID)
	}
	if g.ChargeCount() != 1 {
		t.Errorf("ChargeCount = %d, want 1", g.ChargeCount())
	}

	// A different key is a different charge.
	third, err := g.CreateCharge(ctx, walletCharge("k-2", "wallet:ok"))
	if err != nil {
		t.Fatal(err)
	}
	if third.GatewayTxnID == first.GatewayTxnID {
		t.Error("distinct keys shared a transaction")
	}
	if g.ChargeCount() != 2 {
		t.Errorf("ChargeCount = %d, want 2", g.ChargeCount())
	}
}

func TestWalletGateway_TimeoutOnceIsTransientPerKey(t *testing.T) {
	ctx := context.Background()
	g := NewWalletGateway(0)

	_, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:timeout-once"))
	if err == nil {
		t.Fatal("first attempt should time out")
	}
	if !IsTransient(err) {
		t.Fatalf("timeout not marked transient: %v", err)
	}

	// The retry with the same key goes through; no orphan transaction exists.
	result, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:timeout-once"))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.Status != ChargeStatusSucceeded {
		t.Errorf("retry status = %s", result.Status)
	}
	if g.ChargeCount() != 1 {
		t.Errorf("ChargeCount = %d, want 1", g.ChargeCount())
	}
}

func TestWalletGateway_DeclineIsAResultNotAnError(t *testing.T) {
	ctx := context.Background()
	g := NewWalletGateway(0)

	result, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:declined"))
	if err != nil {
		t.Fatalf("decline must not be an error: %v", err)
	}
	if result.Status != ChargeStatusDeclined {
		t.Errorf("status = %s", result.Status)
	}
	if result.DeclineCode != "insufficient_funds" {
		t.Errorf("decline code = %q", result.DeclineCode)
	}
	if g.ChargeCount() != 0 {
		t.Errorf("ChargeCount = %d, declined charge created a transaction", g.ChargeCount())
	}
}

func TestWalletGateway_ChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	g := NewWalletGateway(0)

	result, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:challenge"))
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	if result.Status != ChargeStatusRequiresChallenge || result.ChallengeRef == "" {
		t.Fatalf("result = %+v", result)
	}

	completed, err := g.CompleteChallenge(ctx, result.ChallengeRef)
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if completed.Status != ChargeStatusSucceeded || completed.GatewayTxnID == "" {
		t.Fatalf("completed = %+v", completed)
	}

	// The challenge is single-use.
	if _, err := g.CompleteChallenge(ctx, result.ChallengeRef); err == nil {
		t.Error("repeat CompleteChallenge should fail")
	}
	if _, err := g.CompleteChallenge(ctx, "wch_unknown"); err == nil {
		t.Error("unknown challenge should fail")
	}
}

func TestWalletGateway_RefundDedupesAndChecksTransaction(t *testing.T) {
	ctx := context.Background()
	g := NewWalletGateway(0)

	charge, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:ok"))
	if err != nil {
		t.Fatal(err)
	}

	req := &RefundRequest{GatewayTxnID: charge.GatewayTxnID, Amount: 37908, IdempotencyKey: "r-1"}
	first, err := g.CreateRefund(ctx, req)
	if err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	if first.Status != RefundStatusSucceeded || first.RefundTxnID == "" {
		t.Fatalf("result = %+v", first)
	}

	second, err := g.CreateRefund(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if second.RefundTxnID != first.RefundTxnID {
		t.Errorf("replay created a new refund: %s vs %s", second.RefundTxnID, first.RefundTxnID)
	}

	_, err = g.CreateRefund(ctx, &RefundRequest{GatewayTxnID: "wtx_unknown", Amount: 100, IdempotencyKey: "r-2"})
	if err == nil {
		t.Fatal("refund of an unknown transaction should fail")
	}
	if IsTransient(err) {
		t.Error("unknown transaction must be terminal, not retryable")
	}
}

func TestWalletGateway_FailRefunds(t *testing.T) {
	ctx := context.Background()
	g := NewWalletGateway(0)

	charge, err := g.CreateCharge(ctx, walletCharge("k-1", "wallet:ok"))
	if err != nil {
		t.Fatal(err)
	}

	g.FailRefunds(true)
	_, err = g.CreateRefund(ctx, &RefundRequest{GatewayTxnID: charge.GatewayTxnID, Amount: 37908, IdempotencyKey: "r-1"})
	if err == nil {
		t.Fatal("refund should fail while FailRefunds is set")
	}

	g.FailRefunds(false)
	result, err := g.CreateRefund(ctx, &RefundRequest{GatewayTxnID: charge.GatewayTxnID, Amount: 37908, IdempotencyKey: "r-1"})
	if err != nil {
		t.Fatalf("CreateRefund after reset: %v", err)
	}
	if result.Status != RefundStatusSucceeded {
		t.Errorf("status = %s", result.Status)
	}
}
