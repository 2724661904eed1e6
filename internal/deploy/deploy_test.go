package deploy

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetoken/mpedeploy/internal/schedule"
)

type call struct {
	contract string
	args     []interface{}
}

type recordingDeployer struct {
	calls  []call
	result *Result
	err    error
}

func (r *recordingDeployer) Deploy(_ context.Context, contract string, args ...interface{}) (*Result, error) {
	r.calls = append(r.calls, call{contract: contract, args: args})
	return r.result, r.err
}

func testParams() Params {
	rate, _ := new(big.Int).SetString("10000000000000000000000", 10)
	return Params{
		Rate:     rate,
		Schedule: schedule.Schedule{Start: 100, Stage2: 160, Stage3: 220, End: 280},
		Roles: []common.Address{
			common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
			common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"),
			common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"),
			common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65"),
			common.HexToAddress("0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc"),
		},
	}
}

func TestInvoke_SingleCallWithOrderedArgs(t *testing.T) {
	p := testParams()
	d := &recordingDeployer{result: &Result{Contract: "MPECrowdsale"}}

	res, err := Invoke(context.Background(), d, "MPECrowdsale", p)
	require.NoError(t, err)
	assert.Equal(t, "MPECrowdsale", res.Contract)

	require.Len(t, d.calls, 1)
	got := d.calls[0]
	assert.Equal(t, "MPECrowdsale", got.contract)

	want := []interface{}{
		p.Rate,
		big.NewInt(100), big.NewInt(160), big.NewInt(220), big.NewInt(280),
		p.Roles[0], p.Roles[1], p.Roles[2], p.Roles[3], p.Roles[4],
	}
	assert.Equal(t, want, got.args)
}

func TestInvoke_FailurePropagatesWithoutRetry(t *testing.T) {
	boom := errors.New("execution reverted")
	d := &recordingDeployer{err: boom}

	_, err := Invoke(context.Background(), d, "MPECrowdsale", testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, d.calls, 1)
}

func TestInvoke_NilResult(t *testing.T) {
	d := &recordingDeployer{}
	_, err := Invoke(context.Background(), d, "MPECrowdsale", testParams())
	assert.ErrorIs(t, err, ErrNilResult)
}

func TestInvoke_InvalidParamsNeverCallDeployer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{name: "nil rate", mutate: func(p *Params) { p.Rate = nil }},
		{name: "zero rate", mutate: func(p *Params) { p.Rate = big.NewInt(0) }},
		{name: "unordered schedule", mutate: func(p *Params) { p.Schedule.Stage3 = p.Schedule.Stage2 }},
		{name: "no roles", mutate: func(p *Params) { p.Roles = nil }},
		{name: "zero role", mutate: func(p *Params) { p.Roles[2] = common.Address{} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			tc.mutate(&p)
			d := &recordingDeployer{result: &Result{}}

			_, err := Invoke(context.Background(), d, "MPECrowdsale", p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.Empty(t, d.calls)
		})
	}
}

func TestParams_ArgsCopiesRate(t *testing.T) {
	p := testParams()
	args := p.Args()
	args[0].(*big.Int).SetInt64(1)
	assert.NotEqual(t, int64(1), p.Rate.Int64())
}

func TestParams_ValidateWrapsScheduleError(t *testing.T) {
	p := testParams()
	p.Schedule.End = 0
	err := p.Validate()
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
}
