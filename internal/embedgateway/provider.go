package embedgateway

import (
	"context"

	"github.com/kkkqkx123/codeforge-index/internal/embedding"
)

// VoyageProvider adapts the teacher's embedding.VoyageClient to the
// Gateway's Provider capability.
type VoyageProvider struct {
	client *embedding.VoyageClient
}

// NewVoyageProvider wraps a VoyageClient as a Provider.
func NewVoyageProvider(client *embedding.VoyageClient) *VoyageProvider {
	return &VoyageProvider{client: client}
}

func (p *VoyageProvider) Dimension() int { return p.client.Dimension() }

func (p *VoyageProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.client.Embed(ctx, texts)
}

func (p *VoyageProvider) Close() error { return nil }
