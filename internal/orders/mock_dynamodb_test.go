package orders

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo stores items per table and evaluates the handful of expressions
// the orders store sends: equality conditions, attribute_not_exists, the
// coupon usage limit, plain SET assignments, if_not_exists arithmetic and
// list_append.
type mockDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]types.AttributeValue
	transact int
	// failTransact, when set, is returned by the next TransactWriteItems.
	failTransact error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[name]
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	if ek := strAttr(item, "entry_key"); ek != "" {
		return strAttr(item, "order_id") + "#" + ek
	}
	for _, name := range []string{"idempotency_key", "order_id", "product_id", "code"} {
		if v := strAttr(item, name); v != "" {
			return v
		}
	}
	return ""
}

func (m *mockDynamo) put(p *types.Put) error {
	tbl := m.table(*p.TableName)
	k := itemKey(p.Item)
	if k == "" {
		return errors.New("no primary key in put item")
	}
	if p.ConditionExpression != nil && strings.HasPrefix(*p.ConditionExpression, "attribute_not_exists(") {
		if _, exists := tbl[k]; exists {
			return errCondition
		}
	}
	tbl[k] = p.Item
	return nil
}

var errCondition = errors.New("condition failed")

func (m *mockDynamo) check(tableName string, key map[string]types.AttributeValue, cond *string, names map[string]string, vals map[string]types.AttributeValue) error {
	item := m.table(tableName)[itemKey(key)]
	if cond == nil {
		return nil
	}
	switch *cond {
	case "attribute_exists(order_id)":
		if item == nil {
			return errCondition
		}
		return nil
	case couponUsageCondition:
		if item == nil {
			return errCondition
		}
		limit, limited := item["max_uses"].(*types.AttributeValueMemberN)
		if !limited {
			return nil
		}
		cur, ok := item["current_uses"].(*types.AttributeValueMemberN)
		if !ok {
			return errCondition
		}
		c, _ := strconv.Atoi(cur.Value)
		m, _ := strconv.Atoi(limit.Value)
		if c >= m {
			return errCondition
		}
		return nil
	}
	if item == nil {
		return errCondition
	}
	for _, clause := range strings.Split(*cond, " AND ") {
		parts := strings.SplitN(clause, " = ", 2)
		attr := resolve(parts[0], names)
		want := vals[parts[1]].(*types.AttributeValueMemberS).Value
		if strAttr(item, attr) != want {
			return errCondition
		}
	}
	return nil
}

func (m *mockDynamo) update(tableName string, key map[string]types.AttributeValue, expr string, names map[string]string, vals map[string]types.AttributeValue) {
	tbl := m.table(tableName)
	k := itemKey(key)
	item := tbl[k]
	if item == nil {
		item = map[string]types.AttributeValue{}
		for kk, vv := range key {
			item[kk] = vv
		}
	}
	for _, assign := range splitAssignments(strings.TrimPrefix(expr, "SET ")) {
		parts := strings.SplitN(assign, " = ", 2)
		attr := resolve(parts[0], names)
		rhs := parts[1]
		switch {
		case strings.HasPrefix(rhs, "list_append("):
			var list []types.AttributeValue
			if cur, ok := item[attr].(*types.AttributeValueMemberL); ok {
				list = append(list, cur.Value...)
			}
			ph := rhs[strings.LastIndex(rhs, ":"):]
			ph = strings.TrimSuffix(ph, ")")
			list = append(list, vals[ph].(*types.AttributeValueMemberL).Value...)
			item[attr] = &types.AttributeValueMemberL{Value: list}
		case strings.HasPrefix(rhs, "if_not_exists("):
			var cur int64
			if n, ok := item[attr].(*types.AttributeValueMemberN); ok {
				cur, _ = strconv.ParseInt(n.Value, 10, 64)
			}
			op := "+"
			if strings.Contains(rhs, ") - ") {
				op = "-"
			}
			ph := rhs[strings.LastIndex(rhs, " ")+1:]
			delta, _ := strconv.ParseInt(vals[ph].(*types.AttributeValueMemberN).Value, 10, 64)
			if op == "-" {
				delta = -delta
			}
			item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+delta, 10)}
		default:
			item[attr] = vals[rhs]
		}
	}
	tbl[k] = item
}

// splitAssignments splits "a = :x, b = f(b, :y)" on the commas between
// assignments only.
func splitAssignments(expr string) []string {
	var out []string
	for _, tok := range strings.Split(expr, ", ") {
		if len(out) > 0 && !strings.Contains(tok, " = ") {
			out[len(out)-1] += ", " + tok
			continue
		}
		out = append(out, tok)
	}
	return out
}

func resolve(name string, names map[string]string) string {
	if n, ok := names[name]; ok {
		return n
	}
	return name
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transact++
	if m.failTransact != nil {
		err := m.failTransact
		m.failTransact = nil
		return nil, err
	}
	// all conditions first, then writes
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: awsString("None")}
		var err error
		switch {
		case it.Put != nil && it.Put.ConditionExpression != nil:
			if _, exists := m.table(*it.Put.TableName)[itemKey(it.Put.Item)]; exists {
				err = errCondition
			}
		case it.Update != nil:
			u := it.Update
			err = m.check(*u.TableName, u.Key, u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
		}
		if err != nil {
			reasons[i].Code = awsString("ConditionalCheckFailed")
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			m.table(*it.Put.TableName)[itemKey(it.Put.Item)] = it.Put.Item
		case it.Update != nil:
			u := it.Update
			m.update(*u.TableName, u.Key, *u.UpdateExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.put(&types.Put{TableName: params.TableName, Item: params.Item, ConditionExpression: params.ConditionExpression}); err != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.table(*params.TableName)[itemKey(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(*params.TableName, params.Key, params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.update(*params.TableName, params.Key, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	return nil, errors.New("not used")
}

// Query supports "<attr> = :v" on a GSI and on the history table.
func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.SplitN(*params.KeyConditionExpression, " = ", 2)
	want := params.ExpressionAttributeValues[parts[1]].(*types.AttributeValueMemberS).Value
	var keys []string
	tbl := m.table(*params.TableName)
	for k, it := range tbl {
		if strAttr(it, parts[0]) == want {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &dyn.QueryOutput{}
	for _, k := range keys {
		out.Items = append(out.Items, tbl[k])
	}
	return out, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &dyn.ScanOutput{}
	for _, it := range m.table(*params.TableName) {
		out.Items = append(out.Items, it)
	}
	return out, nil
}
