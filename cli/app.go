// Package cli contains the planarik command line.
package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"go.viam.com/planarik/arm"
	"go.viam.com/planarik/config"
)

const (
	// Flags.
	debugFlag       = "debug"
	configFlag      = "config"
	linksFlag       = "links"
	framesFlag      = "frames"
	outFlag         = "out"
	targetFlag      = "target"
	plotFlag        = "plot"
	realtimeFlag    = "realtime"
	anglesFlag      = "angles"
	originFlag      = "origin"
	solverFlag      = "solver"
	elbowFlag       = "elbow"
	policyFlag      = "policy"
	fixedJointFlag  = "fixed-joint"
	fixedAngleFlag  = "fixed-angle"
	seedFlag        = "seed"
	toleranceFlag   = "tolerance"
	iterationsFlag  = "max-iterations"
	imprecisionFlag = "accept-imprecise"
)

func armTypeNames() string {
	names := make([]string, 0, len(config.ArmTypes))
	for name := range config.ArmTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func solverKindNames() string {
	kinds := []arm.SolverKind{arm.OneLink, arm.TwoLinkGeometric, arm.TwoLinkIterative, arm.ThreeLinkIterative}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

func linksCLIFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    linksFlag,
		Aliases: []string{"l"},
		Usage:   "comma separated link lengths, base first",
	}
}

var app = &cli.App{
	Name:            "planarik",
	Usage:           "solve and simulate planar articulated chains",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "simulate",
			Usage:     "run a simulation headlessly, optionally saving every frame",
			UsageText: "planarik simulate [options] <arm-type>\n\narm types: " + armTypeNames(),
			ArgsUsage: "<arm-type>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    configFlag,
					Aliases: []string{"c"},
					Usage:   "load the simulation from `FILE`",
				},
				linksCLIFlag(),
				&cli.IntFlag{
					Name:  framesFlag,
					Usage: "number of frames to run",
				},
				&cli.StringFlag{
					Name:  outFlag,
					Usage: "write each frame as a PNG into `DIR`",
				},
				&cli.StringSliceFlag{
					Name:  targetFlag,
					Usage: "pointer target as x,y or x,y@frame; repeatable",
				},
				&cli.StringFlag{
					Name:  plotFlag,
					Usage: "plot the joint angles over time into `FILE`",
				},
				&cli.BoolFlag{
					Name:  realtimeFlag,
					Usage: "pace frames at the configured fps instead of running as fast as possible",
				},
			},
			Action: SimulateAction,
		},
		{
			Name:  "solve",
			Usage: "compute joint angles that put the end-effector on a target",
			Flags: []cli.Flag{
				linksCLIFlag(),
				&cli.StringFlag{
					Name:     targetFlag,
					Aliases:  []string{"t"},
					Usage:    "target x,y relative to the base",
					Required: true,
				},
				&cli.StringFlag{
					Name:  solverFlag,
					Usage: "one of " + solverKindNames() + "; picked from the number of links by default",
				},
				&cli.StringFlag{
					Name:  elbowFlag,
					Usage: "elbow branch for the geometric solver: up, down or closest",
					Value: "up",
				},
				&cli.StringFlag{
					Name:  policyFlag,
					Usage: "redundancy policy for three links: placeholder, fixed_joint, minimum_norm or minimum_travel",
				},
				&cli.IntFlag{
					Name:  fixedJointFlag,
					Usage: "joint held by the fixed_joint policy",
				},
				&cli.Float64Flag{
					Name:  fixedAngleFlag,
					Usage: "angle in degrees of the joint held by the fixed_joint policy",
				},
				&cli.StringFlag{
					Name:  seedFlag,
					Usage: "comma separated starting angles in degrees",
				},
				&cli.Float64Flag{
					Name:  toleranceFlag,
					Usage: "residual tolerance of the iterative solver",
				},
				&cli.IntFlag{
					Name:  iterationsFlag,
					Usage: "iteration budget of the iterative solver",
				},
				&cli.BoolFlag{
					Name:  imprecisionFlag,
					Usage: "print solutions that miss the target instead of failing",
				},
			},
			Action: SolveAction,
		},
		{
			Name:  "fk",
			Usage: "compute joint positions from joint angles",
			Flags: []cli.Flag{
				linksCLIFlag(),
				&cli.StringFlag{
					Name:     anglesFlag,
					Aliases:  []string{"a"},
					Usage:    "comma separated joint angles in degrees",
					Required: true,
				},
				&cli.StringFlag{
					Name:  originFlag,
					Usage: "base position x,y",
					Value: "0,0",
				},
			},
			Action: ForwardKinematicsAction,
		},
		{
			Name:   "workspace",
			Usage:  "print the annulus the end-effector can reach",
			Flags:  []cli.Flag{linksCLIFlag()},
			Action: WorkspaceAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
