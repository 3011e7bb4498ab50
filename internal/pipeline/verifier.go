package pipeline

import (
	"context"
	"fmt"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/fp"
)

const stageVerifier = "Verifier"

// Verifier recomputes the digest of the downloaded artifact and compares it
// against the expected hash from the source configuration. It is only wired
// into the chain when the configuration carries "expectedHash".
type Verifier struct{}

func NewVerifier() *Verifier { return &Verifier{} }

func (v *Verifier) Name() string { return stageVerifier }

func (v *Verifier) Handle(_ context.Context, uc *data.UpdaterContext) error {
	path := uc.LastPath()
	if path == "" {
		// Nothing was downloaded this run; there is nothing to verify.
		return nil
	}

	expected := uc.Config.String("expectedHash")
	got, err := fp.SumFile(path)
	if err != nil {
		uc.PushStageStatus(stageVerifier, data.StatusFail)
		return fmt.Errorf("%w: %v", data.ErrIntegrity, err)
	}
	if got != expected {
		uc.PushStageStatus(stageVerifier, data.StatusFail)
		return fmt.Errorf("%w: digest %s does not match expected %s", data.ErrIntegrity, got, expected)
	}

	uc.PushStageStatus(stageVerifier, data.StatusOK)
	return nil
}
