package apiClient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	Config "custody-engine/config"
	"custody-engine/utility/appError"
	"custody-engine/utility/errorcode"
)

// Client object for chain node API requests
type Client struct {
	BaseURL    *url.URL
	UserAgent  string
	Config     Config.Data
	HttpClient *http.Client
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d : %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func New(HttpClient *http.Client, config Config.Data, baseURL string) *Client {
	if HttpClient == nil {
		HttpClient = &http.Client{Timeout: time.Duration(config.RequestTimeout) * time.Second}
	}
	c := &Client{HttpClient: HttpClient}
	c.Config = config
	c.BaseURL, _ = url.Parse(baseURL)

	return c
}

// CallRPC performs a JSON-RPC 2.0 call against the configured node endpoint and
// unmarshals the result object into v. Transport failures and timeouts come back
// as RPC_UNAVAILABLE; a JSON-RPC error object is returned as *RPCError for the
// caller to classify.
func (c *Client) CallRPC(method string, params interface{}, v interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return appError.New(errorcode.RPC_UNAVAILABLE, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("node returned http status %d", resp.StatusCode))
	}

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return appError.New(errorcode.RPC_UNAVAILABLE, err)
	}

	rpcResp := rpcResponse{}
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return appError.New(errorcode.RPC_UNAVAILABLE, fmt.Errorf("malformed node response : %s", err))
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if v != nil {
		if len(rpcResp.Result) == 0 {
			return errors.New("empty result from node")
		}
		if err := json.Unmarshal(rpcResp.Result, v); err != nil {
			return err
		}
	}
	return nil
}
