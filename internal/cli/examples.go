package cli

import (
	"github.com/spf13/cobra"

	"ad-studio-api/internal/domain/entity"
)

// Scenario 内置演示用例
type Scenario struct {
	Name      string
	Expect    string
	Original  entity.Script
	Selection []int
	Response  string
}

func fourLines() entity.Script {
	return entity.Script{
		{Line: "Original line 1", ArtDirection: "Original art direction 1"},
		{Line: "Original line 2", ArtDirection: "Original art direction 2"},
		{Line: "Original line 3", ArtDirection: "Original art direction 3"},
		{Line: "Original line 4", ArtDirection: "Original art direction 4"},
	}
}

// Scenarios 覆盖授权修改、越权回滚、缺行、多行与标记清理
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:      "authorized changes only",
			Expect:    "all changes accepted, no validation issues",
			Original:  fourLines(),
			Selection: []int{1, 2},
			Response: `{"status":"success","data":[
				["Original line 1","Original art direction 1"],
				["Modified line 2","Modified art direction 2"],
				["Modified line 3","Modified art direction 3"],
				["Original line 4","Original art direction 4"]]}`,
		},
		{
			Name:      "unauthorized changes",
			Expect:    "changes outside index 1 detected and reverted",
			Original:  fourLines(),
			Selection: []int{1},
			Response: `{"status":"success","data":[
				["THIS SHOULD BE REVERTED","THIS SHOULD ALSO BE REVERTED"],
				["Modified line 2","Modified art direction 2"],
				["THIS SHOULD BE REVERTED TOO","AND THIS"],
				["YET ANOTHER UNAUTHORIZED CHANGE","ANOTHER ONE"]]}`,
		},
		{
			Name:      "missing lines",
			Expect:    "length mismatch detected, tail filled from the original",
			Original:  fourLines(),
			Selection: []int{2, 3},
			Response: `{"status":"success","data":[
				["Original line 1","Original art direction 1"],
				["Original line 2","Original art direction 2"]]}`,
		},
		{
			Name:      "extra lines",
			Expect:    "length mismatch detected, extra lines truncated",
			Original:  fourLines(),
			Selection: []int{0},
			Response: `{"status":"success","data":[
				["Modified line 1","Modified art direction 1"],
				["Original line 2","Original art direction 2"],
				["Original line 3","Original art direction 3"],
				["Original line 4","Original art direction 4"],
				["EXTRA LINE THAT SHOULD BE REMOVED","EXTRA ART DIRECTION"]]}`,
		},
		{
			Name:      "marker removal",
			Expect:    "prompt markers stripped from every line",
			Original:  fourLines()[:3],
			Selection: []int{1},
			Response: `{"status":"success","data":[
				["[[PRESERVE: 0]] Original line 1 [[END PRESERVE]]","[[PRESERVE: 0]] Original art direction 1 [[END PRESERVE]]"],
				["[[SELECTED FOR MODIFICATION: 1]] Modified line 2 [[END SELECTED]]","[[SELECTED FOR MODIFICATION: 1]] Modified art direction 2 [[END SELECTED]]"],
				["[[PRESERVE: 2]] Original line 3 [[END PRESERVE]]","[[PRESERVE: 2]] Original art direction 3 [[END PRESERVE]]"]]}`,
		},
	}
}

// RunScenarios 依次执行内置用例
func RunScenarios() ([]*Report, error) {
	scenarios := Scenarios()
	reports := make([]*Report, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := Check(sc.Original, entity.NewSelectionSet(sc.Selection...), []byte(sc.Response))
		if err != nil {
			return nil, err
		}
		r.Name = sc.Name + ": " + sc.Expect
		reports = append(reports, r)
	}
	return reports, nil
}

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "examples",
		Short: "Run the built-in validation scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			reports, err := RunScenarios()
			if err != nil {
				exitErr("run scenarios", err)
			}
			if err := Write(cmd.OutOrStdout(), formatFlag, reports...); err != nil {
				exitErr("write report", err)
			}
		},
	})
}
