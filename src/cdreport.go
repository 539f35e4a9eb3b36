package main

import (
	"context"
	"os"
	"strings"

	sdkArgs "github.com/newrelic/infra-integrations-sdk/args"
	"github.com/newrelic/infra-integrations-sdk/integration"
	"github.com/newrelic/infra-integrations-sdk/log"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vapi/rest"
)

type argumentList struct {
	sdkArgs.DefaultArgumentList
	Datacenter    string `default:"default" help:"Datacenter to report on. {datacenter name|default|all}. all will discover all available datacenters."`
	URL           string `default:"https://vcenteripaddress/sdk" help:"vSphere or vCenter SDK URL"`
	Username      string `default:"" help:"The vSphere or vCenter username."`
	Password      string `default:"" help:"The vSphere or vCenter password."`
	Name          string `default:"" help:"Comma separated VM name patterns. Supports * and ? globbing."`
	Location      string `default:"" help:"Folder path under the datacenter VM folder the VMs must live in."`
	Tag           string `default:"" help:"Comma separated tag names. VMs must carry at least one of them."`
	Datastore     string `default:"" help:"Report VMs placed on this datastore."`
	VirtualSwitch string `default:"" help:"Report VMs with at least one NIC on this network or distributed portgroup."`
	RelatedObject string `default:"" help:"Report VMs owned by a related object, given as Type:name. Supported types: ResourcePool, VirtualApp."`
	ID            string `default:"" help:"Comma separated VM managed object ids, e.g. vm-42."`
	NoRecursion   bool   `default:"false" help:"Do not descend below Location when matching by name."`
	ConfigFile    string `default:"" help:"Config file restricting which report columns are published (overrides default config)"`
	DeviceDetail  bool   `default:"false" help:"Also publish the flattened CD-ROM device backing for each record."`
	Insecure      bool   `default:"true" help:"Don't verify the server's certificate chain"`
}

const (
	integrationName    = "com.newrelic.vmware-cdreport"
	integrationVersion = "1.0.0"
)

var args argumentList

func main() {
	// Create Integration (also process args, so this step must be done first)
	i, err := integration.New(integrationName, integrationVersion, integration.Args(&args))
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	// Validate the filter before any remote query is issued.
	filter, err := filterFromArgs(args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	columns := defaultColumns
	if configFile := strings.TrimSpace(args.ConfigFile); configFile != "" {
		columns, err = parseConfigFile(configFile)
		if err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	}

	url := strings.TrimSpace(args.URL)
	username := strings.TrimSpace(args.Username)
	password := strings.TrimSpace(args.Password)
	datacenter := strings.TrimSpace(args.Datacenter)

	// Connect and login to ESXi host or vCenter
	client, err := newClient(url, username, password, args.Insecure)
	if err != nil {
		log.Error("unable to create client for " + url)
		log.Error(err.Error())
		os.Exit(3)
	}
	defer logout(client)

	// Tags live behind the vAPI REST endpoint. A failed login only costs
	// the tags column, not the report.
	restClient := newRestClient(client, username, password)

	err = populateReport(i, client, restClient, datacenter, filter, columns)
	if err != nil {
		log.Error(err.Error())
		os.Exit(2)
	}

	if err := i.Publish(); err != nil {
		log.Error(err.Error())
	}
}

func populateReport(i *integration.Integration, client *govmomi.Client, restClient *rest.Client, datacenter string, filter *vmFilter, columns []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := true
	finder := find.NewFinder(client.Client, all)

	if datacenter == "default" {
		// Find one and only datacenter
		dc, err := finder.DefaultDatacenter(ctx)
		if err != nil {
			return err
		}
		return populateReportForDatacenter(ctx, i, client, restClient, finder, dc, filter, columns)
	}
	if datacenter == "all" {
		dclist, err := finder.DatacenterList(ctx, "*")
		if err != nil {
			return err
		}
		for _, dcItem := range dclist {
			if err := populateReportForDatacenter(ctx, i, client, restClient, finder, dcItem, filter, columns); err != nil {
				return err
			}
		}
		return nil
	}
	dc, err := finder.Datacenter(ctx, datacenter)
	if err != nil {
		return err
	}
	return populateReportForDatacenter(ctx, i, client, restClient, finder, dc, filter, columns)
}

func populateReportForDatacenter(ctx context.Context, i *integration.Integration, client *govmomi.Client, restClient *rest.Client, finder *find.Finder, dc *object.Datacenter, filter *vmFilter, columns []string) error {
	log.Debug("Populating CD drive report for datacenter [%s]", dc.Name())
	// Make future calls local to this datacenter
	finder.SetDatacenter(dc)

	entity, err := i.Entity(dc.Name(), "datacenter")
	if err != nil {
		return err
	}

	c := newReportCollector(client, restClient, entity, finder, dc, filter, columns)
	return c.collect(ctx)
}
