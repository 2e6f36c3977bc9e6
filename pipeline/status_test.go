package pipeline

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusProspect, StatusContacted, true},
		{StatusProspect, StatusClosedLost, true},
		{StatusProspect, StatusClosedWon, false},
		{StatusContacted, StatusNegotiating, true},
		{StatusNegotiating, StatusClosedWon, true},
		{StatusNegotiating, StatusContacted, false},
		{StatusClosedWon, StatusProspect, false},
		{StatusClosedLost, StatusProspect, true},
		{StatusClosedLost, StatusNegotiating, false},
	}
	for _, tc := range cases {
		if got := CanTransitionStatus(tc.from, tc.to); got != tc.ok {
			t.Errorf("status %s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestContractTransitions(t *testing.T) {
	cases := []struct {
		from, to ContractStatus
		sig      SignatureStatus
		ok       bool
	}{
		{ContractNone, ContractVerbalAgreement, SignatureNotStarted, true},
		{ContractNone, ContractSent, SignatureNotStarted, true},
		{ContractVerbalAgreement, ContractSent, SignatureNotStarted, true},
		{ContractSent, ContractSigned, SignatureSigned, true},
		{ContractSigned, ContractSent, SignatureSigned, false},
		{ContractSent, ContractVerbalAgreement, SignatureNotStarted, false},
	}
	for _, tc := range cases {
		if got := CanTransitionContract(tc.from, tc.to, tc.sig); got != tc.ok {
			t.Errorf("contract %s -> %s (sig %s) = %v, want %v", tc.from, tc.to, tc.sig, got, tc.ok)
		}
	}
}

func TestContractResendNeedsRejectedOrExpired(t *testing.T) {
	for _, sig := range []SignatureStatus{SignatureRejected, SignatureExpired} {
		if !CanTransitionContract(ContractSent, ContractSent, sig) {
			t.Errorf("re-send with signature %s must be allowed", sig)
		}
	}
	for _, sig := range []SignatureStatus{SignatureNotStarted, SignaturePending, SignatureSigned} {
		if CanTransitionContract(ContractSent, ContractSent, sig) {
			t.Errorf("re-send with signature %s must be blocked", sig)
		}
	}
}

func TestSignatureTransitions(t *testing.T) {
	cases := []struct {
		from, to SignatureStatus
		ok       bool
	}{
		{SignatureNotStarted, SignaturePending, true},
		{SignatureNotStarted, SignatureSigned, false},
		{SignaturePending, SignatureSigned, true},
		{SignaturePending, SignatureRejected, true},
		{SignaturePending, SignatureExpired, true},
		{SignatureSigned, SignaturePending, false},
		{SignatureRejected, SignaturePending, true},
		{SignatureExpired, SignaturePending, true},
	}
	for _, tc := range cases {
		if got := CanTransitionSignature(tc.from, tc.to); got != tc.ok {
			t.Errorf("signature %s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
