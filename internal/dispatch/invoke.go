// Package dispatch hands asset events to the labelling Lambda
// asynchronously, so request-scoped callers such as the webhook can return
// before polling and detection finish.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/trigger"
)

// API is the subset of *lambda.Client used by Invoker.
type API interface {
	Invoke(ctx context.Context, params *lambdasvc.InvokeInput, optFns ...func(*lambdasvc.Options)) (*lambdasvc.InvokeOutput, error)
}

// Invoker sends events to a Lambda function with InvocationType=Event.
type Invoker struct {
	client       API
	functionName string
}

// NewInvoker targets the named function or ARN.
func NewInvoker(client API, functionName string) *Invoker {
	return &Invoker{client: client, functionName: functionName}
}

// DispatchAsset queues ev for processing. The payload is the JSON form of
// trigger.AssetCreateEvent, which the asset Lambda accepts directly.
func (i *Invoker) DispatchAsset(ctx context.Context, ev trigger.AssetCreateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal asset event: %w", err)
	}
	return i.invoke(ctx, payload, ev.SpaceID+"/"+ev.AssetID)
}

// DispatchReindex queues a batch run on a reindex function.
func (i *Invoker) DispatchReindex(ctx context.Context, req ReindexRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal reindex request: %w", err)
	}
	return i.invoke(ctx, payload, req.SpaceID+"/"+req.EnvironmentID)
}

// ReindexRequest is the payload of the reindex Lambda.
type ReindexRequest struct {
	SpaceID       string `json:"spaceId"`
	EnvironmentID string `json:"environmentId"`
	Mode          string `json:"mode,omitempty"`
}

func (i *Invoker) invoke(ctx context.Context, payload []byte, ref string) error {
	out, err := i.client.Invoke(ctx, &lambdasvc.InvokeInput{
		FunctionName:   aws.String(i.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", i.functionName, err)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("invoke %s: %s", i.functionName, aws.ToString(out.FunctionError))
	}
	log.Debug().Str("function", i.functionName).Str("ref", ref).Int32("status", out.StatusCode).Msg("Lambda invoked asynchronously")
	return nil
}
