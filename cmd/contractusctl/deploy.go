package main

import (
	"context"
	"fmt"

	"contractus/sdk/arbiter"
	"contractus/sdk/contract"
	"contractus/sdk/ordo"
	"contractus/sdk/regimen"
	"contractus/sdk/sigillum"
	"contractus/sdk/sigillum/rank"
)

func (a *app) runDeploy(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: deploy <arbiter|regimen|sigillum|ordo> [flags]")
		return errUsage
	}
	switch args[0] {
	case "arbiter":
		return a.deployPlain(ctx, "arbiter", args[1:], a.cfg.Artifacts.Arbiter, func(opts contract.Options, code []byte) (contract.DeployResult, error) {
			_, result, err := arbiter.Deploy(ctx, opts, code)
			return result, err
		})
	case "regimen":
		return a.deployPlain(ctx, "regimen", args[1:], a.cfg.Artifacts.Regimen, func(opts contract.Options, code []byte) (contract.DeployResult, error) {
			_, result, err := regimen.Deploy(ctx, opts, code)
			return result, err
		})
	case "sigillum", "ordo":
		return a.deployToken(ctx, args[0], args[1:])
	default:
		fmt.Fprintf(a.stderr, "Unknown deploy target: %s\n", args[0])
		return errUsage
	}
}

func (a *app) deployPlain(ctx context.Context, name string, args []string, artifact string, deploy func(contract.Options, []byte) (contract.DeployResult, error)) error {
	fs := a.flagSet("deploy " + name)
	var codePath string
	fs.StringVar(&codePath, "bytecode", "", "Hex encoded creation bytecode file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	code, err := bytecode(codePath, artifact)
	if err != nil {
		return err
	}
	opts, err := a.options(ctx, true)
	if err != nil {
		return err
	}
	result, err := deploy(opts, code)
	if err != nil {
		return err
	}
	return a.print(newDeployOutput(name, result))
}

func (a *app) deployToken(ctx context.Context, name string, args []string) error {
	fs := a.flagSet("deploy " + name)
	var codePath, tokenName, symbol, description, arbiterAddr string
	fs.StringVar(&codePath, "bytecode", "", "Hex encoded creation bytecode file")
	fs.StringVar(&tokenName, "name", "", "Token name")
	fs.StringVar(&symbol, "symbol", "", "Token symbol")
	fs.StringVar(&description, "description", "", "Collection description")
	fs.StringVar(&arbiterAddr, "arbiter", "", "Arbiter address, defaults to the configured one")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if arbiterAddr == "" {
		arbiterAddr = a.cfg.Contracts.Arbiter
	}
	arb, err := requireAddress("arbiter", arbiterAddr)
	if err != nil {
		return err
	}
	artifact := a.cfg.Artifacts.Sigillum
	if name == "ordo" {
		artifact = a.cfg.Artifacts.Ordo
	}
	code, err := bytecode(codePath, artifact)
	if err != nil {
		return err
	}
	deployOpts := sigillum.DeployOptions{
		Name:        tokenName,
		Symbol:      symbol,
		Description: description,
		Arbiter:     arb,
		Bytecode:    code,
	}
	if err := deployOpts.Validate(); err != nil {
		return err
	}
	deployOpts.Options, err = a.options(ctx, true)
	if err != nil {
		return err
	}

	var result contract.DeployResult
	if name == "ordo" {
		_, result, err = ordo.Deploy(ctx, deployOpts, rank.Default())
	} else {
		_, result, err = sigillum.Deploy(ctx, deployOpts)
	}
	if err != nil {
		return err
	}
	return a.print(newDeployOutput(name, result))
}
