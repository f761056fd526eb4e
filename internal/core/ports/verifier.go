package ports

// Verifier checks that an export run produced the files it claims to.
//
//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=mocks/mock_verifier.go -package=mocks
type Verifier interface {
	// VerifyOutputs checks if all output files exist relative to root.
	VerifyOutputs(root string, outputs []string) (bool, error)
}
