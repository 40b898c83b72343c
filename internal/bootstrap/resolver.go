package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chordkv/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// ResolveSeed turns a BootstrapConfig into a concrete "host:port" address
// for the seed successor to dial. Mode "static" uses SeedAddr verbatim;
// mode "dns" looks up an SRV record via Route53. An empty mode is handled
// like "static"; an empty SeedAddr then means this node is the first member
// of its ring.
func ResolveSeed(ctx context.Context, cfg config.BootstrapConfig) (string, error) {
	switch cfg.Mode {
	case "", "static":
		return cfg.SeedAddr, nil
	case "dns":
		return resolveSRV(ctx, cfg.SRVName)
	default:
		return "", fmt.Errorf("bootstrap: unsupported mode %q", cfg.Mode)
	}
}

// resolveSRV queries Route53 directly for an SRV record set named name and
// returns the first target as "host:port". It assumes the zone containing
// name is discoverable by the default AWS credential chain's region/zone
// configuration passed at call sites that need it; for the single-zone
// deployments this module targets, ListHostedZonesByName plus a record
// lookup is sufficient and avoids requiring the caller to already know the
// zone ID just to join the ring.
func resolveSRV(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("bootstrap: srvName is empty")
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	client := route53.NewFromConfig(awsCfg)

	fqdn := strings.TrimSuffix(name, ".") + "."
	zoneName := fqdn
	if idx := strings.Index(fqdn, "."); idx >= 0 {
		zoneName = fqdn[idx+1:]
	}

	zones, err := client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(zoneName),
	})
	if err != nil {
		return "", fmt.Errorf("bootstrap: list hosted zones for %q: %w", zoneName, err)
	}
	if len(zones.HostedZones) == 0 {
		return "", fmt.Errorf("bootstrap: no hosted zone found for %q", zoneName)
	}
	zoneID := zones.HostedZones[0].Id

	rrsets, err := client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    zoneID,
		StartRecordName: aws.String(fqdn),
		StartRecordType: types.RRTypeSrv,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("bootstrap: list record sets for %q: %w", fqdn, err)
	}
	if len(rrsets.ResourceRecordSets) == 0 || len(rrsets.ResourceRecordSets[0].ResourceRecords) == 0 {
		return "", fmt.Errorf("bootstrap: no SRV record found for %q", fqdn)
	}

	return parseSRVTarget(aws.ToString(rrsets.ResourceRecordSets[0].ResourceRecords[0].Value))
}

// parseSRVTarget turns a "priority weight port target." SRV value into
// "target:port".
func parseSRVTarget(value string) (string, error) {
	fields := strings.Fields(value)
	if len(fields) != 4 {
		return "", fmt.Errorf("bootstrap: malformed SRV value %q", value)
	}
	port := fields[2]
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("bootstrap: malformed SRV port in %q: %w", value, err)
	}
	target := strings.TrimSuffix(fields[3], ".")
	return target + ":" + port, nil
}
