// Package files reads Search Console exports and manages output files.
//
// Reading: ReadTable and ReadUpload parse .csv (comma, then semicolon) and
// .xlsx (first sheet) files into a domain.Table. Legacy .xls and any other
// extension are rejected with an UNSUPPORTED_FORMAT error.
//
// Discovery: FindInputs expands file and directory arguments into the list of
// exports to process, skipping files that are already consolidation outputs.
//
// Naming and writing: OutputName derives the consolidated file name and
// Manager.WriteAtomic places finished files on disk in one rename.
//
// Example usage:
//
//	table, err := files.ReadTable("performance.csv")
//	if err != nil {
//	    return err
//	}
//	out := files.OutputPath("performance.csv", "", domain.OutputFormatExcel, 5)
//	// out == "performance_consolide_min5clics.xlsx"
package files
