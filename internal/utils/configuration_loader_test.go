package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/iterbot/internal/utils"
)

const (
	testEnvironmentPrefixConstant              = "TESTITERBOT"
	testConfigurationNameConstant              = "config"
	testConfigurationTypeConstant              = "yaml"
	testConfigFileNameConstant                 = "config.yaml"
	testGroupKeyConstant                       = "rebalance.group"
	testGroupEnvironmentVariableConstant       = testEnvironmentPrefixConstant + "_REBALANCE_GROUP"
	testGroupTemplateConstant                  = "rebalance:\n  group: %s\n"
	testUserConfigurationDirectoryNameConstant = "iterbot"
	testXDGConfigHomeDirectoryNameConstant     = "config"
	configurationLoaderSubtestTemplateConstant = "%d_%s"
)

type groupFixture struct {
	Rebalance struct {
		Group string `mapstructure:"group"`
	} `mapstructure:"rebalance"`
}

type decodedValuesFixture struct {
	Job struct {
		Timeout time.Duration `mapstructure:"timeout"`
		Members []string      `mapstructure:"members"`
	} `mapstructure:"job"`
}

func TestConfigurationLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name             string
		embeddedGroup    string
		fileGroup        string
		environmentGroup string
		expectedGroup    string
	}{
		{name: "defaults only", expectedGroup: "default-group"},
		{name: "embedded over defaults", embeddedGroup: "embedded-group", expectedGroup: "embedded-group"},
		{name: "file over embedded", embeddedGroup: "embedded-group", fileGroup: "file-group", expectedGroup: "file-group"},
		{name: "environment over file", embeddedGroup: "embedded-group", fileGroup: "file-group", environmentGroup: "env-group", expectedGroup: "env-group"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configurationFilePath := ""
			if len(testCase.fileGroup) > 0 {
				configurationFilePath = filepath.Join(testInstance.TempDir(), testConfigFileNameConstant)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(fmt.Sprintf(testGroupTemplateConstant, testCase.fileGroup)), 0o600))
			}
			if len(testCase.environmentGroup) > 0 {
				testInstance.Setenv(testGroupEnvironmentVariableConstant, testCase.environmentGroup)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
			if len(testCase.embeddedGroup) > 0 {
				configurationLoader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testGroupTemplateConstant, testCase.embeddedGroup)), testConfigurationTypeConstant)
			}

			loaded := groupFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, map[string]any{testGroupKeyConstant: "default-group"}, &loaded)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedGroup, loaded.Rebalance.Group)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderFindsFileInSearchPaths(testInstance *testing.T) {
	firstDirectory := testInstance.TempDir()
	secondDirectory := testInstance.TempDir()

	configurationFilePath := filepath.Join(secondDirectory, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(fmt.Sprintf(testGroupTemplateConstant, "searched-group")), 0o600))

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{firstDirectory, secondDirectory})

	loaded := groupFixture{}
	metadata, loadError := configurationLoader.LoadConfiguration("", nil, &loaded)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "searched-group", loaded.Rebalance.Group)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderDecodesDurationsAndLists(testInstance *testing.T) {
	testCases := []struct {
		name                string
		fileContent         string
		environmentMembers  string
		expectedTimeout     time.Duration
		expectedMembersList []string
	}{
		{
			name:                "values from file",
			fileContent:         "job:\n  timeout: 45s\n  members:\n    - alice\n    - bob\n",
			expectedTimeout:     45 * time.Second,
			expectedMembersList: []string{"alice", "bob"},
		},
		{
			name:                "comma separated environment list",
			fileContent:         "job:\n  timeout: 2m\n  members: []\n",
			environmentMembers:  "carol,dave",
			expectedTimeout:     2 * time.Minute,
			expectedMembersList: []string{"carol", "dave"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configurationFilePath := filepath.Join(testInstance.TempDir(), testConfigFileNameConstant)
			require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testCase.fileContent), 0o600))

			if len(testCase.environmentMembers) > 0 {
				testInstance.Setenv(testEnvironmentPrefixConstant+"_JOB_MEMBERS", testCase.environmentMembers)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

			decoded := decodedValuesFixture{}
			_, loadError := configurationLoader.LoadConfiguration(configurationFilePath, nil, &decoded)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedTimeout, decoded.Job.Timeout)
			require.Equal(testInstance, testCase.expectedMembersList, decoded.Job.Members)
		})
	}
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	missingFilePath := filepath.Join(testInstance.TempDir(), "absent.yaml")
	_, loadError := configurationLoader.LoadConfiguration(missingFilePath, nil, &groupFixture{})
	require.Error(testInstance, loadError)
	require.Contains(testInstance, loadError.Error(), "failed to read configuration")
}

func TestDefaultConfigurationSearchPaths(testInstance *testing.T) {
	homeDirectoryPath := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectoryPath)
	testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectoryPath, testXDGConfigHomeDirectoryNameConstant))

	userConfigurationBaseDirectoryPath, userConfigurationDirectoryError := os.UserConfigDir()
	require.NoError(testInstance, userConfigurationDirectoryError)

	searchPaths := utils.DefaultConfigurationSearchPaths(testUserConfigurationDirectoryNameConstant)
	require.Equal(testInstance, []string{".", filepath.Join(userConfigurationBaseDirectoryPath, testUserConfigurationDirectoryNameConstant)}, searchPaths)
}
