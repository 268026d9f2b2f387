package service

import "strconv"

// exportSchemaVersion must be bumped whenever a record shape changes,
// otherwise entries written by a previous build are served until expiry.
const exportSchemaVersion = "v1"

const productsExportKey = "products_data_export"

const userOrdersExportKeyPrefix = "user_orders_export:"

func ProductsExportKey() string {
	return exportSchemaVersion + ":" + productsExportKey
}

// UserOrdersExportKey derives the key from the immutable owner id.
func UserOrdersExportKey(ownerID int64) string {
	return exportSchemaVersion + ":" + userOrdersExportKeyPrefix +
		strconv.FormatInt(ownerID, 10)
}
