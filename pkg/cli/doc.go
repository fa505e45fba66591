/*
Package cli provides the output formatting, progress, signal and exit-code
helpers shared by the arbiter commands.

Output Formatting:

Results print as aligned text, JSON or CSV. Types with a table form
implement Tabular:

	format, err := cli.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Progress Reporting:

Long exports report to stderr so stdout stays clean:

	progress := cli.NewProgressReporter(nil)
	progress.Start(total)
	progress.Update(written)
	progress.Finish()

Exit Codes:

Commands return errors; main maps them with ExitCode. A command that has
already printed its findings (lint) returns an ExitError carrying the status.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
*/
package cli
