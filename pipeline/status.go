package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition signals a status change the transition tables forbid.
var ErrInvalidTransition = errors.New("pipeline: invalid status transition")

// statusTransitions encodes the sales-stage machine. Closed states are
// terminal.
var statusTransitions = map[Status][]Status{
	StatusProspect:    {StatusContacted, StatusClosedLost},
	StatusContacted:   {StatusNegotiating, StatusClosedLost},
	StatusNegotiating: {StatusClosedWon, StatusClosedLost},
	StatusClosedWon:   {},
	StatusClosedLost:  {StatusProspect},
}

// contractTransitions encodes the forward-only contract machine. The one
// backward edge, re-entering contract-sent, is guarded separately in
// CanTransitionContract because it depends on the signature axis.
var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractNone:            {ContractVerbalAgreement, ContractSent},
	ContractVerbalAgreement: {ContractSent},
	ContractSent:            {ContractSigned},
	ContractSigned:          {},
}

// signatureTransitions encodes the provider-driven machine. Only the webhook
// path moves a signature out of pending; signed is terminal.
var signatureTransitions = map[SignatureStatus][]SignatureStatus{
	SignatureNotStarted: {SignaturePending},
	SignaturePending:    {SignatureSigned, SignatureRejected, SignatureExpired},
	SignatureSigned:     {},
	SignatureRejected:   {SignaturePending},
	SignatureExpired:    {SignaturePending},
}

// CanTransitionStatus reports whether the sales stage may move from -> to.
func CanTransitionStatus(from, to Status) bool {
	return contains(statusTransitions[from], to)
}

// CanTransitionContract reports whether the contract status may move
// from -> to given the current signature status. Re-sending (contract-sent
// to contract-sent) is allowed only after the provider rejected or expired
// the previous agreement.
func CanTransitionContract(from, to ContractStatus, sig SignatureStatus) bool {
	if from == ContractSent && to == ContractSent {
		return sig == SignatureRejected || sig == SignatureExpired
	}
	return contains(contractTransitions[from], to)
}

// CanTransitionSignature reports whether the signature status may move
// from -> to.
func CanTransitionSignature(from, to SignatureStatus) bool {
	return contains(signatureTransitions[from], to)
}

func checkSignatureTransition(from, to SignatureStatus) error {
	if !CanTransitionSignature(from, to) {
		return fmt.Errorf("pipeline: signature %s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return nil
}

func contains[T comparable](set []T, v T) bool {
	for _, have := range set {
		if have == v {
			return true
		}
	}
	return false
}
