package shopify

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// query is a parsed GraphQL document sent to the Admin API
type query struct {
	name string
	text string
}

// mustQuery parses a query document once at startup so a malformed
// document fails the process instead of a sync run
func mustQuery(src string) query {
	doc, err := parser.ParseQuery(&ast.Source{Input: src})
	if err != nil {
		panic(fmt.Sprintf("invalid shopify query: %v", err))
	}
	if len(doc.Operations) != 1 {
		panic(fmt.Sprintf("shopify query must hold one operation, got %d", len(doc.Operations)))
	}
	return query{name: doc.Operations[0].Name, text: src}
}

var customersPageQuery = mustQuery(`
query CustomersPage($first: Int!, $after: String, $query: String) {
  customers(first: $first, after: $after, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        firstName
        lastName
        email
        phone
        note
        createdAt
        defaultAddress { address1 address2 city province country countryCodeV2 zip phone company }
        addresses { address1 address2 city province country countryCodeV2 zip phone company }
      }
    }
  }
}`)

var productsPageQuery = mustQuery(`
query ProductsPage($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        title
        status
        createdAt
        descriptionHtml
        productType
        vendor
        tags
        variants(first: 250) { edges { node { id sku price inventoryQuantity } } }
        images(first: 250) { edges { node { url } } }
      }
    }
  }
}`)

var ordersPageQuery = mustQuery(`
query OrdersPage($first: Int!, $after: String, $query: String) {
  orders(first: $first, after: $after, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        name
        createdAt
        updatedAt
        note
        currencyCode
        unpaid
        totalPriceSet { shopMoney { amount } }
        customer { id email firstName lastName phone }
        shippingAddress { address1 address2 city province country zip }
        lineItems(first: 250) {
          edges {
            node {
              product { id title descriptionHtml }
              variant { id sku price inventoryQuantity }
              quantity
              taxLines { price }
            }
          }
        }
      }
    }
  }
}`)

var metafieldDefinitionsQuery = mustQuery(`
query MetafieldDefinitions($ownerType: MetafieldOwnerType!) {
  metafieldDefinitions(first: 250, ownerType: $ownerType) {
    edges { node { key name description namespace type { name } } }
  }
}`)

var customerDetailsQuery = mustQuery(`
query CustomerDetails($id: ID!) {
  customer(id: $id) {
    tags
    note
    emailMarketingConsent { marketingState }
    smsMarketingConsent { marketingState }
    lastOrder: orders(first: 1, sortKey: CREATED_AT, reverse: true) {
      edges {
        node {
          id
          name
          confirmationNumber
          displayFulfillmentStatus
          displayFinancialStatus
          fulfillments(first: 1) { createdAt trackingInfo { company number url } }
          billingAddress { ...Address }
          shippingAddress { ...Address }
          lineItems(first: 3, reverse: true) {
            edges {
              node {
                product {
                  title
                  tags
                  vendor
                  productType
                  onlineStoreUrl
                  images(first: 1) { edges { node { src } } }
                }
                variant { price }
              }
            }
          }
        }
      }
    }
    unpaidOrders: orders(first: 250, query: "financial_status:pending OR financial_status:authorized") {
      edges { node { id } }
    }
  }
}

fragment Address on MailingAddress {
  address1
  address2
  city
  country
  phone
  zip
  province
}`)

var productDetailsQuery = mustQuery(`
query ProductDetails($id: ID!) {
  shop { taxesIncluded }
  product(id: $id) {
    tags
    vendor
    status
    productType
    onlineStoreUrl
    category { name }
    collections(first: 50) { edges { node { title } } }
    publications(first: 10) { edges { node { isPublished channel { name } } } }
    variants(first: 1) {
      edges {
        node {
          barcode
          inventoryItem {
            requiresShipping
            countryCodeOfOrigin
            harmonizedSystemCode
            measurement { weight { value unit } }
          }
        }
      }
    }
  }
}`)

var orderDetailsQuery = mustQuery(`
query OrderDetails($id: ID!) {
  order(id: $id) {
    id
    name
    note
    tags
    paymentGatewayNames
    displayFinancialStatus
    displayFulfillmentStatus
    totalPriceSet { shopMoney { amount } }
    totalTaxSet { shopMoney { amount } }
    totalDiscountsSet { shopMoney { amount } }
    totalRefundedSet { shopMoney { amount } }
    shippingLine { title originalPriceSet { shopMoney { amount } } }
    fulfillments(first: 1) { createdAt trackingInfo { company number url } }
    billingAddress { ...Address }
    shippingAddress { ...Address }
  }
}

fragment Address on MailingAddress {
  address1
  address2
  city
  country
  phone
  zip
  province
}`)
