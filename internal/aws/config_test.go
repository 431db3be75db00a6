package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, "us-east-1", cfg.Region)
}

func TestLoadAWSConfig_WithEndpointOverride(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), Options{
		Region:   "eu-west-1",
		Endpoint: "http://localhost:4566",
	})
	require.NoError(t, err)
	require.Equal(t, "eu-west-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	require.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
}
