package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/jean/dbt/pkg/model"
)

var ProjectDefinitionFiles = model.ProjectDefinitionFiles

const profilesFileName = "profiles.yml"

var (
	fs = afero.NewCacheOnReadFs(afero.NewOsFs(), afero.NewMemMapFs(), 0)

	faint          = color.New(color.Faint).SprintFunc()
	infoPrinter    = color.New(color.Bold)
	errorPrinter   = color.New(color.FgRed, color.Bold)
	successPrinter = color.New(color.FgGreen, color.Bold)
)
