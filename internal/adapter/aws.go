package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"hopper/internal/domain"
)

// AWS address fields
const (
	AWSAddressPrivateIP  = "private_ip"
	AWSAddressPublicIP   = "public_ip"
	AWSAddressPrivateDNS = "private_dns"
	AWSAddressPublicDNS  = "public_dns"
)

// AWSConfig holds configuration for an EC2 source
type AWSConfig struct {
	Name         string
	Profile      string
	Region       string
	AddressField string
}

// AWSSource lists running EC2 instances
type AWSSource struct {
	name         string
	profile      string
	region       string
	addressField string

	clientOnce sync.Once
	client     ec2.DescribeInstancesAPIClient
	clientErr  error
}

// NewAWSSource creates an EC2 source. Credentials are resolved lazily through
// the SDK default chain on the first fetch.
func NewAWSSource(cfg AWSConfig) (*AWSSource, error) {
	if cfg.Name == "" {
		cfg.Name = "aws"
	}
	switch cfg.AddressField {
	case "":
		cfg.AddressField = AWSAddressPrivateIP
	case AWSAddressPrivateIP, AWSAddressPublicIP, AWSAddressPrivateDNS, AWSAddressPublicDNS:
	default:
		return nil, fmt.Errorf("aws source %s: unknown address_field %q", cfg.Name, cfg.AddressField)
	}

	return &AWSSource{
		name:         cfg.Name,
		profile:      cfg.Profile,
		region:       cfg.Region,
		addressField: cfg.AddressField,
	}, nil
}

// WithClient injects the EC2 client, bypassing SDK config loading
func (s *AWSSource) WithClient(client ec2.DescribeInstancesAPIClient) *AWSSource {
	s.clientOnce.Do(func() {})
	s.client = client
	return s
}

// Name returns the source identifier
func (s *AWSSource) Name() string {
	return s.name
}

// Kind returns the source kind
func (s *AWSSource) Kind() domain.SourceKind {
	return domain.SourceCloudProvider
}

func (s *AWSSource) ec2Client(ctx context.Context) (ec2.DescribeInstancesAPIClient, error) {
	s.clientOnce.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if s.region != "" {
			opts = append(opts, awsconfig.WithRegion(s.region))
		}
		if s.profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(s.profile))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.clientErr = fmt.Errorf("load aws config: %w", err)
			return
		}
		s.client = ec2.NewFromConfig(cfg)
	})
	return s.client, s.clientErr
}

// Fetch pages through DescribeInstances for running instances
func (s *AWSSource) Fetch(ctx context.Context) (*Batch, error) {
	client, err := s.ec2Client(ctx)
	if err != nil {
		return nil, err
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{{
			Name:   aws.String("instance-state-name"),
			Values: []string{"running"},
		}},
	}

	batch := &Batch{}
	paginator := ec2.NewDescribeInstancesPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				s.addInstance(batch, inst)
			}
		}
	}
	return batch, nil
}

func (s *AWSSource) addInstance(batch *Batch, inst types.Instance) {
	id := aws.ToString(inst.InstanceId)
	ref := id
	if ref == "" {
		ref = "instance without id"
	}

	attrs := map[string]string{
		domain.AttrSourceName: s.name,
	}
	if id != "" {
		attrs[domain.AttrInstanceID] = id
	}
	if inst.InstanceType != "" {
		attrs["instance_type"] = string(inst.InstanceType)
	}
	if inst.Placement != nil && inst.Placement.AvailabilityZone != nil {
		attrs["availability_zone"] = *inst.Placement.AvailabilityZone
	}
	if inst.VpcId != nil {
		attrs["vpc_id"] = *inst.VpcId
	}

	name := id
	for _, tag := range inst.Tags {
		key, value := aws.ToString(tag.Key), aws.ToString(tag.Value)
		if key == "" {
			continue
		}
		if key == "Name" && value != "" {
			name = value
		}
		attrs["tag:"+key] = value
	}

	batch.add(ref, name, s.address(inst), domain.SourceCloudProvider, attrs)
}

func (s *AWSSource) address(inst types.Instance) string {
	switch s.addressField {
	case AWSAddressPublicIP:
		return aws.ToString(inst.PublicIpAddress)
	case AWSAddressPrivateDNS:
		return aws.ToString(inst.PrivateDnsName)
	case AWSAddressPublicDNS:
		return aws.ToString(inst.PublicDnsName)
	default:
		return aws.ToString(inst.PrivateIpAddress)
	}
}
