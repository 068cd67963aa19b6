// Package rekognition wraps the AWS Rekognition operations the moderation
// service depends on: text detection, moderation-label detection, and general
// label detection.
package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsrekognition "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// Client is a thin wrapper around the Rekognition API client.
type Client struct {
	api *awsrekognition.Client
}

// NewClient creates a Rekognition client for the given region. Credentials
// resolve through the default SDK chain.
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{api: awsrekognition.NewFromConfig(cfg)}, nil
}

// DetectText runs text detection on raw image bytes and returns all
// detections, word-level and line-level alike.
func (c *Client) DetectText(ctx context.Context, image []byte) ([]types.TextDetection, error) {
	out, err := c.api.DetectText(ctx, &awsrekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition DetectText: %w", err)
	}
	return out.TextDetections, nil
}

// DetectModerationLabels returns the moderation labels at or above
// minConfidence. The API applies the threshold; no re-filtering happens here.
func (c *Client) DetectModerationLabels(ctx context.Context, image []byte, minConfidence float32) ([]types.ModerationLabel, error) {
	out, err := c.api.DetectModerationLabels(ctx, &awsrekognition.DetectModerationLabelsInput{
		Image:         &types.Image{Bytes: image},
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition DetectModerationLabels: %w", err)
	}
	return out.ModerationLabels, nil
}

// DetectLabels returns up to maxLabels general labels at or above
// minConfidence.
func (c *Client) DetectLabels(ctx context.Context, image []byte, maxLabels int32, minConfidence float32) ([]types.Label, error) {
	out, err := c.api.DetectLabels(ctx, &awsrekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(maxLabels),
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition DetectLabels: %w", err)
	}
	return out.Labels, nil
}
