package catalog

import "fmt"

// Cache key grammar. Keys follow {entityPrefix}:{qualifier...}:{tenantId};
// the tenant id is always part of the key for tenant-scoped entities, so
// multi-tenant isolation is enforced entirely through key namespacing.
const (
	tenantPrefix   = "tenant:"
	categoryPrefix = "category:"
	productPrefix  = "product:"
	userPrefix     = "user:"
	propertyPrefix = "property:"
)

func keyAllProducts(tenantID int) string {
	return fmt.Sprintf("%sall:%d", productPrefix, tenantID)
}

func keyProductByID(productID, tenantID int) string {
	return fmt.Sprintf("%s%d:%d", productPrefix, productID, tenantID)
}

func keyProductsByCategory(categoryID, tenantID int) string {
	return fmt.Sprintf("%scategory:%d:%d", productPrefix, categoryID, tenantID)
}

func keyProductsWithProperties(tenantID int) string {
	return fmt.Sprintf("%swithproperties:%d", productPrefix, tenantID)
}

func keyAllCategories(tenantID int) string {
	return fmt.Sprintf("%sall:%d", categoryPrefix, tenantID)
}

func keyCategoryByID(categoryID, tenantID int) string {
	return fmt.Sprintf("%s%d:%d", categoryPrefix, categoryID, tenantID)
}

func keyAllUsers(tenantID int) string {
	return fmt.Sprintf("%sall:%d", userPrefix, tenantID)
}

func keyUserByID(userID, tenantID int) string {
	return fmt.Sprintf("%s%d:%d", userPrefix, userID, tenantID)
}

func keyUserByUsername(username string, tenantID int) string {
	return fmt.Sprintf("%susername:%s:%d", userPrefix, username, tenantID)
}

func keyAllProperties(tenantID int) string {
	return fmt.Sprintf("%sall:%d", propertyPrefix, tenantID)
}

func keyPropertyByID(propertyID, tenantID int) string {
	return fmt.Sprintf("%s%d:%d", propertyPrefix, propertyID, tenantID)
}

func keyActiveTenants() string {
	return tenantPrefix + "active"
}

func keyTenantByID(tenantID int) string {
	return fmt.Sprintf("%s%d", tenantPrefix, tenantID)
}

// Wildcard patterns for bulk invalidation.

func patternTenant(tenantID int) string {
	return fmt.Sprintf("*:%d", tenantID)
}

func patternProducts(tenantID int) string {
	return fmt.Sprintf("%s*:%d", productPrefix, tenantID)
}

func patternCategories(tenantID int) string {
	return fmt.Sprintf("%s*:%d", categoryPrefix, tenantID)
}

func patternUsers(tenantID int) string {
	return fmt.Sprintf("%s*:%d", userPrefix, tenantID)
}

func patternProperties(tenantID int) string {
	return fmt.Sprintf("%s*:%d", propertyPrefix, tenantID)
}
