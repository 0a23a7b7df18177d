package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/jean/dbt/pkg/config"
	"github.com/jean/dbt/pkg/logger"
	path2 "github.com/jean/dbt/pkg/path"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func makeLogger(debug bool) *zap.SugaredLogger {
	return logger.New(debug)
}

func RecoverFromPanic() {
	if err := recover(); err != nil {
		log.Println("=======================================")
		log.Println("An unexpected error occurred, please report the issue.")
		log.Println(err)
		log.Println("=======================================")
		b := bufio.NewScanner(bytes.NewBuffer(debug.Stack()))
		for b.Scan() {
			log.Println(b.Text())
		}
		os.Exit(1)
	}
}

func printErrorJSON(err error) {
	errResponse := ErrorResponse{
		Error: errors.New("something went wrong").Error(),
	}
	if err != nil {
		errResponse.Error = err.Error()
	}

	js, marshalError := json.Marshal(errResponse)
	if marshalError != nil {
		fmt.Println(marshalError)
		return
	}
	fmt.Println(string(js))
}

func printError(err error, output string, message string) {
	if output == "json" {
		printErrorJSON(err)
	} else {
		errorPrinter.Printf("%s: %v\n", message, err)
	}
}

// loadTargetFromProject resolves the active connection profile for a project
// directory, honoring the --env and --target flags.
func loadTargetFromProject(projectRoot, env, targetName string) (*config.Config, *config.Target, error) {
	cm, err := config.LoadOrCreate(fs, filepath.Join(projectRoot, profilesFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load the profiles file: %w", err)
	}

	if env != "" {
		if err := cm.SelectEnvironment(env); err != nil {
			return nil, nil, err
		}
	}

	target, err := cm.GetSelectedTarget(targetName)
	if err != nil {
		return nil, nil, err
	}

	return cm, target, nil
}

func findProjectRoot(inputPath string) (string, error) {
	if inputPath == "" {
		inputPath = "."
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("cannot access the given path '%s': %w", inputPath, err)
	}

	if info.IsDir() {
		return inputPath, nil
	}

	return path2.GetProjectRootFromModel(inputPath, ProjectDefinitionFiles)
}
