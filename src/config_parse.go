package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/newrelic/infra-integrations-sdk/log"
)

type reportDefinitions struct {
	Columns []string
}

// defaultColumns is the full report: every column is published unless a
// config file narrows the set.
var defaultColumns = []string{
	"name",
	"datastore",
	"isoPath",
	"hostDevice",
	"remoteDevice",
	"blueFolderPath",
	"tags",
}

func fileExists(filePath string) (exists bool) {
	exists = true

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		exists = false
	}
	log.Debug("%s exists? %v", filePath, exists)
	return
}

func loadConfiguration(file string) (reportDefinitions, error) {
	var reportDef reportDefinitions
	configFile, err := os.Open(file)
	if err != nil {
		log.Error("Error reading configuration file '%s': %v", file, err)
		return reportDef, err
	}
	defer func() {
		if err := configFile.Close(); err != nil {
			log.Error(err.Error())
		}
	}()
	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&reportDef)
	if err != nil {
		log.Error("Error reading configuration file '%s': %v", file, err)
		return reportDef, err
	}
	return reportDef, nil
}

func parseConfigFile(configFile string) ([]string, error) {
	log.Info(fmt.Sprintf("Reading configuration file %s", configFile))

	if !fileExists(configFile) {
		return nil, fmt.Errorf("error loading configuration from file. Configuration file does not exist")
	}
	reportDef, err := loadConfiguration(configFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration from file (%v)", err)
	}
	if len(reportDef.Columns) == 0 {
		return defaultColumns, nil
	}

	known := make(map[string]bool, len(defaultColumns))
	for _, column := range defaultColumns {
		known[column] = true
	}
	for _, column := range reportDef.Columns {
		if !known[column] {
			return nil, fmt.Errorf("unknown report column %q in %s", column, configFile)
		}
	}
	log.Debug("Report columns from configuration = %v", reportDef.Columns)
	return reportDef.Columns, nil
}
