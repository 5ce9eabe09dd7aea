package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/de-tools/service-map/pkg/models/domain"
)

const (
	SourceEC2 = "ec2"
	SourceRDS = "rds"
)

// Instance is a discovered cloud resource, ready to become an asset.
type Instance struct {
	Identifier  string
	AssetType   string
	Zone        string
	Description string
}

type Source interface {
	Type() string
	Discover(ctx context.Context) ([]Instance, error)
}

type EC2Source struct {
	client ec2.DescribeInstancesAPIClient
}

func NewEC2Source(cfg aws.Config) *EC2Source {
	return &EC2Source{client: ec2.NewFromConfig(cfg)}
}

func (s *EC2Source) Type() string { return SourceEC2 }

// Discover lists running instances. Instances are identified by their
// public DNS name, falling back to the private one and then the id.
func (s *EC2Source) Discover(ctx context.Context) ([]Instance, error) {
	paginator := ec2.NewDescribeInstancesPaginator(s.client, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"running"},
			},
		},
	})

	var out []Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe EC2 instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				out = append(out, ec2Instance(instance))
			}
		}
	}
	return out, nil
}

func ec2Instance(instance ec2types.Instance) Instance {
	id := aws.ToString(instance.InstanceId)
	identifier := aws.ToString(instance.PublicDnsName)
	if identifier == "" {
		identifier = aws.ToString(instance.PrivateDnsName)
	}
	if identifier == "" {
		identifier = id
	}

	name := id
	for _, tag := range instance.Tags {
		if aws.ToString(tag.Key) == "Name" {
			name = aws.ToString(tag.Value)
			break
		}
	}

	var zone string
	if instance.Placement != nil {
		zone = aws.ToString(instance.Placement.AvailabilityZone)
	}
	return Instance{
		Identifier:  identifier,
		AssetType:   domain.AssetTypeHostname,
		Zone:        zone,
		Description: fmt.Sprintf("EC2 instance %s %s (%s)", name, id, instance.InstanceType),
	}
}

type RDSSource struct {
	client rds.DescribeDBInstancesAPIClient
}

func NewRDSSource(cfg aws.Config) *RDSSource {
	return &RDSSource{client: rds.NewFromConfig(cfg)}
}

func (s *RDSSource) Type() string { return SourceRDS }

func (s *RDSSource) Discover(ctx context.Context) ([]Instance, error) {
	paginator := rds.NewDescribeDBInstancesPaginator(s.client, &rds.DescribeDBInstancesInput{})

	var out []Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe RDS instances: %w", err)
		}
		for _, db := range page.DBInstances {
			identifier := aws.ToString(db.DBInstanceIdentifier)
			if db.Endpoint != nil && aws.ToString(db.Endpoint.Address) != "" {
				identifier = aws.ToString(db.Endpoint.Address)
			}
			out = append(out, Instance{
				Identifier: identifier,
				AssetType:  domain.AssetTypeDatabase,
				Zone:       aws.ToString(db.AvailabilityZone),
				Description: fmt.Sprintf("RDS instance %s (%s, %s)",
					aws.ToString(db.DBInstanceIdentifier),
					aws.ToString(db.DBInstanceClass),
					aws.ToString(db.Engine),
				),
			})
		}
	}
	return out, nil
}
