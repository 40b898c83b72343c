package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"chordkv/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Registrar publishes this node's address under a DNS SRV record so that
// later joiners can find a seed successor without a literal host:port.
type Registrar struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	ttl          int64
}

// NewRegistrar builds a Registrar from RegisterConfig. It is a no-op-safe
// construction; callers should check cfg.Enabled before calling it.
func NewRegistrar(ctx context.Context, cfg config.RegisterConfig) (*Registrar, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return &Registrar{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: cfg.HostedZoneID,
		domainSuffix: strings.TrimSuffix(cfg.DomainSuffix, "."),
		ttl:          cfg.TTL,
	}, nil
}

// Register upserts an SRV record named "<keySlot>.<domainSuffix>." pointing
// at host:port.
func (r *Registrar) Register(ctx context.Context, keySlot uint64, host string, port int) error {
	name := fmt.Sprintf("%d.%s.", keySlot, r.domainSuffix)
	value := fmt.Sprintf("0 0 %d %s.", port, host)

	_, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name:            aws.String(name),
						Type:            types.RRTypeSrv,
						TTL:             aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{{Value: aws.String(value)}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: register %s: %w", name, err)
	}
	return nil
}

// Deregister removes the SRV record previously published by Register.
func (r *Registrar) Deregister(ctx context.Context, keySlot uint64, host string, port int) error {
	name := fmt.Sprintf("%d.%s.", keySlot, r.domainSuffix)
	value := fmt.Sprintf("0 0 %d %s.", port, host)

	_, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionDelete,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name:            aws.String(name),
						Type:            types.RRTypeSrv,
						TTL:             aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{{Value: aws.String(value)}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: deregister %s: %w", name, err)
	}
	return nil
}
