package main

import (
	"context"
	"net/url"

	"github.com/newrelic/infra-integrations-sdk/log"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vim25/soap"
)

func setCredentials(u *url.URL, un string, pw string) {
	// Override username if provided
	if un != "" {
		var password string
		var ok bool

		if u.User != nil {
			password, ok = u.User.Password()
		}

		if ok {
			u.User = url.UserPassword(un, password)
		} else {
			u.User = url.User(un)
		}
	}

	// Override password if provided
	if pw != "" {
		var username string

		if u.User != nil {
			username = u.User.Username()
		}

		u.User = url.UserPassword(username, pw)
	}
}

// newClient creates a govmomi.Client
func newClient(vmURL string, vmUsername string, vmPassword string, insecure bool) (*govmomi.Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Parse URL from string
	u, err := soap.ParseURL(vmURL)
	if err != nil {
		return nil, err
	}

	// Override username and/or password as required
	setCredentials(u, vmUsername, vmPassword)
	// Connect and log in to ESX or vCenter
	return govmomi.NewClient(ctx, u, insecure)
}

// newRestClient opens a vAPI session on the same endpoint for tag lookups.
// Standalone ESXi hosts have no vAPI endpoint; the report then runs with an
// empty tags column.
func newRestClient(client *govmomi.Client, vmUsername string, vmPassword string) *rest.Client {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restClient := rest.NewClient(client.Client)
	// copy the endpoint URL: setCredentials must not inject userinfo into
	// the live SOAP client's URL
	u := *client.URL()
	setCredentials(&u, vmUsername, vmPassword)
	if err := restClient.Login(ctx, u.User); err != nil {
		log.Warn("vAPI login failed, tag assignments will not be reported: %v", err)
		return nil
	}
	return restClient
}

func logout(client *govmomi.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := client.Logout(ctx)
	if err != nil {
		log.Error(err.Error())
	}
}
