/*
Package cli provides command-line helpers shared by the relay commands.

Errors:

ConfigError and CommandError wrap failures so that ExitCode can map them to
a process exit status (2 for configuration problems, 1 otherwise):

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return cli.WrapConfigError(err)
	}

Output Formatting:

Results implementing Tabular render as aligned text, CSV or JSON:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}
*/
package cli
