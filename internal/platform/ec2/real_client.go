package ec2

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/imamik/shipyard/internal/config"
)

// RealClient implements API against the AWS EC2 service.
type RealClient struct {
	ec2 *awsec2.Client
}

// NewClient builds an EC2 client for the given region. Static credentials
// from the config file take precedence; otherwise the ambient AWS
// credential chain applies.
func NewClient(ctx context.Context, region string, creds config.Credentials) (*RealClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if !creds.IsZero() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &RealClient{ec2: awsec2.NewFromConfig(cfg)}, nil
}

// DescribeInstance implements API.
func (c *RealClient) DescribeInstance(ctx context.Context, id string) (Status, error) {
	out, err := c.ec2.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return Status{}, fmt.Errorf("failed to describe instance %s: %w", id, err)
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return Status{}, fmt.Errorf("instance %s not found", id)
	}

	inst := out.Reservations[0].Instances[0]
	status := Status{}
	if inst.State != nil {
		status.State = InstanceState(inst.State.Name)
	}
	if inst.PublicIpAddress != nil {
		status.Address = *inst.PublicIpAddress
	}
	return status, nil
}

// StartInstance implements API.
func (c *RealClient) StartInstance(ctx context.Context, id string) error {
	_, err := c.ec2.StartInstances(ctx, &awsec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Errorf("failed to start instance %s: %w", id, err)
	}
	return nil
}

// StopInstance implements API.
func (c *RealClient) StopInstance(ctx context.Context, id string) error {
	_, err := c.ec2.StopInstances(ctx, &awsec2.StopInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if IsIncorrectState(err) {
			// Already stopped or stopping; the controller treats this as done.
			return nil
		}
		return fmt.Errorf("failed to stop instance %s: %w", id, err)
	}
	return nil
}
